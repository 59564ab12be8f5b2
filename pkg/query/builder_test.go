package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semantalytics/jena-temporal/pkg/entity"
)

func builderDef() *entity.Definition {
	def := entity.NewDefinition("uri", "text")
	def.GraphField = "graph"
	def.LangField = "lang"
	def.Map("http://example/label", "text")
	def.Map("http://example/comment", "comment")
	return def
}

func TestBuildPlainText(t *testing.T) {
	qs, field, sf := buildQueryString(builderDef(), Request{Text: "hello"})
	assert.Equal(t, "hello", qs)
	assert.Equal(t, "text", field)
	assert.False(t, sf)
}

func TestBuildFieldFromPredicate(t *testing.T) {
	qs, field, _ := buildQueryString(builderDef(), Request{Text: "hello", Predicate: "http://example/comment"})
	assert.Equal(t, "comment:(hello)", qs)
	assert.Equal(t, "comment", field)

	// Unmapped predicates fall back to the primary field.
	qs, field, _ = buildQueryString(builderDef(), Request{Text: "hello", Predicate: "http://example/unmapped"})
	assert.Equal(t, "hello", qs)
	assert.Equal(t, "text", field)
}

func TestBuildLangClause(t *testing.T) {
	qs, _, _ := buildQueryString(builderDef(), Request{Text: "gift", Lang: "en"})
	assert.Equal(t, "(gift) AND lang:en", qs)

	qs, _, _ = buildQueryString(builderDef(), Request{Text: "gift", Lang: LangNone})
	assert.Equal(t, "(gift) AND -lang:*", qs)
}

func TestBuildGraphScope(t *testing.T) {
	qs, _, _ := buildQueryString(builderDef(), Request{Text: "hello", GraphURI: "http://example/g"})
	assert.Equal(t, `(hello) AND graph:http\:\/\/example\/g`, qs)
}

func TestBuildMultilingualVariant(t *testing.T) {
	def := builderDef()
	def.Multilingual = true
	qs, field, _ := buildQueryString(def, Request{Text: "gift", Predicate: "http://example/label", Lang: "de"})
	assert.Equal(t, "(text_de:(gift)) AND lang:de", qs)
	// The base field is reported without the variant suffix.
	assert.Equal(t, "text", field)
}

func TestBuildSearchFor(t *testing.T) {
	def := builderDef()
	def.Multilingual = true
	def.SearchFor = map[string][]string{"zh-hans": {"zh-hans", "zh-hant"}}

	qs, field, sf := buildQueryString(def, Request{Text: "礼物", Lang: "zh-hans"})
	assert.True(t, sf)
	assert.Equal(t, "text_zh-hans:(礼物) text_zh-hant:(礼物)", qs)
	assert.Equal(t, "text", field)
}
