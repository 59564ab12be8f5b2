package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
)

func searchDef() *entity.Definition {
	def := entity.NewDefinition("uri", "text")
	def.GraphField = "graph"
	def.LangField = "lang"
	def.UIDField = "uid"
	def.Map("http://example/label", "text")
	return def
}

type doc struct {
	id       string
	graph    string
	value    string
	lang     string
	datatype string
}

func buildIndex(t *testing.T, def *entity.Definition, docs []doc) *index.Engine {
	t.Helper()
	idx, err := index.Open(index.Options{InMemory: true, Definition: def})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	for _, d := range docs {
		e := entity.New(d.id, d.graph)
		e.Put("text", d.value)
		e.SetLang(d.lang)
		e.SetDatatype(d.datatype)
		require.NoError(t, idx.Add(e))
	}
	require.NoError(t, idx.PrepareCommit())
	require.NoError(t, idx.Commit())
	return idx
}

func subjects(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Subject)
	}
	return out
}

func TestSearchBasic(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "the quick brown fox"},
		{id: "http://example/b", value: "a lazy dog"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "fox"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/a"}, subjects(hits))
	require.NotNil(t, hits[0].Literal)
	assert.Equal(t, "the quick brown fox", hits[0].Literal.Lexical)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearchDefaultOr(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "quick fox"},
		{id: "http://example/b", value: "lazy dog"},
		{id: "http://example/c", value: "quiet night"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "fox dog"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"http://example/a", "http://example/b"}, subjects(hits))

	hits, err = eng.Search(Request{Text: "fox AND dog"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchPhrase(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "the quick brown fox"},
		{id: "http://example/b", value: "the brown quick fox"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: `"quick brown"`})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/a"}, subjects(hits))
}

func TestSearchNegation(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "quick fox"},
		{id: "http://example/b", value: "quick dog"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "quick AND -dog"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/a"}, subjects(hits))
}

func TestSearchLangScoping(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/en", value: "gift", lang: "en"},
		{id: "http://example/de", value: "gift", lang: "de"},
		{id: "http://example/plain", value: "gift"},
	})
	eng := New(def, idx, nil)

	// Unscoped, every language matches.
	hits, err := eng.Search(Request{Text: "gift"})
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = eng.Search(Request{Text: "gift", Lang: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/en"}, subjects(hits))
	assert.Equal(t, "en", hits[0].Literal.Lang)

	hits, err = eng.Search(Request{Text: "gift", Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/de"}, subjects(hits))

	// The none sentinel selects only untagged values.
	hits, err = eng.Search(Request{Text: "gift", Lang: LangNone})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/plain"}, subjects(hits))
}

func TestSearchGraphScoping(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", graph: "http://example/g1", value: "shared term"},
		{id: "http://example/b", graph: "http://example/g2", value: "shared term"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "shared", GraphURI: "http://example/g1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/a"}, subjects(hits))
	assert.Equal(t, "http://example/g1", hits[0].Graph)
}

func TestSearchDatatype(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "42", datatype: "http://www.w3.org/2001/XMLSchema#int"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "42"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].Literal)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#int", hits[0].Literal.Datatype)
	assert.Equal(t, "", hits[0].Literal.Lang)
}

func TestSearchMultilingualFanOut(t *testing.T) {
	def := searchDef()
	def.Multilingual = true
	def.SearchFor = map[string][]string{"en": {"en", "en-GB"}}
	idx := buildIndex(t, def, []doc{
		{id: "http://example/us", value: "color", lang: "en"},
		{id: "http://example/gb", value: "colour", lang: "en-GB"},
		{id: "http://example/de", value: "farbe", lang: "de"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "color colour", Lang: "en"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"http://example/us", "http://example/gb"}, subjects(hits))
}

func TestSearchLimit(t *testing.T) {
	def := searchDef()
	var docs []doc
	for i := 0; i < 5; i++ {
		docs = append(docs, doc{id: "http://example/" + string(rune('a'+i)), value: "common"})
	}
	idx := buildIndex(t, def, docs)
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "common", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = eng.Search(Request{Text: "common"})
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}

func TestSearchMalformedQuery(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, nil)
	eng := New(def, idx, nil)

	_, err := eng.Search(Request{Text: "[[malformed"})
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Query, "[[malformed")
}

func TestSearchHighlight(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "English gift of gab"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "gift", Highlight: "s:<<|e:>>"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "English <<gift>> of gab", hits[0].Literal.Lexical)

	// Default markers.
	hits, err = eng.Search(Request{Text: "gift", Highlight: " "})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "English ↦gift↤ of gab", hits[0].Literal.Lexical)
}

func TestSearchHighlightZeroFragments(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "English gift of gab"},
	})
	eng := New(def, idx, nil)

	// A non-positive fragment count is malformed and keeps the default;
	// disabling fragment joining alongside it must not blow up on an
	// empty fragment list. The option string comes straight from callers.
	hits, err := eng.Search(Request{Text: "gift", Highlight: "m:0|jf:n"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "English ↦gift↤ of gab", hits[0].Literal.Lexical)

	opts := parseHighlightOpts("m:0|z:0|jf:n")
	assert.Equal(t, 3, opts.maxFrags)
	assert.Equal(t, 128, opts.fragSize)
	assert.NotPanics(t, func() {
		highlight("hello world", map[string]bool{"hello": true}, opts)
	})
}

func TestSearchHighlightNoTermMatchKeepsLexical(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "plain note", lang: "en"},
	})
	eng := New(def, idx, nil)

	// The match comes from the existence clause, not a text term; the
	// stored form stands instead of being blanked.
	hits, err := eng.Search(Request{Text: "lang:*", Highlight: "s:<<|e:>>"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].Literal)
	assert.Equal(t, "plain note", hits[0].Literal.Lexical)
}

func TestSearchExistence(t *testing.T) {
	def := searchDef()
	idx := buildIndex(t, def, []doc{
		{id: "http://example/a", value: "tagged", lang: "en"},
		{id: "http://example/b", value: "untagged"},
	})
	eng := New(def, idx, nil)

	hits, err := eng.Search(Request{Text: "lang:* AND (tagged untagged)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example/a"}, subjects(hits))
}
