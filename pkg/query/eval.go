package query

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
)

// contrib is one positive term occurrence used for scoring and
// highlighting.
type contrib struct {
	field string
	term  string
}

type evaluator struct {
	r            index.Reader
	def          *entity.Definition
	defaultField string
	keyword      index.KeywordAnalyzer
	text         index.StandardAnalyzer
	contribs     []contrib
}

func newEvaluator(r index.Reader, def *entity.Definition, defaultField string) *evaluator {
	return &evaluator{r: r, def: def, defaultField: defaultField}
}

// keywordField reports whether a field holds unanalyzed terms.
func (ev *evaluator) keywordField(field string) bool {
	switch field {
	case ev.def.EntityField, ev.def.GraphField, ev.def.LangField, ev.def.UIDField:
		return field != ""
	}
	return false
}

func (ev *evaluator) tokens(field, text string) []string {
	if ev.keywordField(field) {
		return ev.keyword.Tokens(text)
	}
	return ev.text.Tokens(text)
}

// eval returns the matching documents for a node, intersected with the live
// set by the caller at the top level. The returned bitmap is owned by the
// caller.
func (ev *evaluator) eval(n node, positive bool) *roaring.Bitmap {
	switch n := n.(type) {
	case *boolNode:
		acc := ev.eval(n.kids[0], positive)
		for _, kid := range n.kids[1:] {
			b := ev.eval(kid, positive)
			if n.and {
				acc.And(b)
			} else {
				acc.Or(b)
			}
		}
		return acc
	case *notNode:
		b := ev.r.Live().Clone()
		b.AndNot(ev.eval(n.kid, false))
		return b
	case *termNode:
		field := n.field
		if field == "" {
			field = ev.defaultField
		}
		toks := ev.tokens(field, n.term)
		if len(toks) == 0 {
			return roaring.New()
		}
		if len(toks) > 1 {
			return ev.phrase(field, toks, positive)
		}
		if positive {
			ev.contribs = append(ev.contribs, contrib{field: field, term: toks[0]})
		}
		return ev.r.Postings(field, toks[0]).Clone()
	case *phraseNode:
		field := n.field
		if field == "" {
			field = ev.defaultField
		}
		toks := ev.tokens(field, n.phrase)
		if len(toks) == 0 {
			return roaring.New()
		}
		if len(toks) == 1 {
			if positive {
				ev.contribs = append(ev.contribs, contrib{field: field, term: toks[0]})
			}
			return ev.r.Postings(field, toks[0]).Clone()
		}
		return ev.phrase(field, toks, positive)
	case *existsNode:
		return ev.r.FieldDocs(n.field).Clone()
	default:
		return roaring.New()
	}
}

// phrase matches documents containing the tokens at consecutive positions.
func (ev *evaluator) phrase(field string, toks []string, positive bool) *roaring.Bitmap {
	acc := ev.r.Postings(field, toks[0]).Clone()
	for _, t := range toks[1:] {
		acc.And(ev.r.Postings(field, t))
	}

	out := roaring.New()
	it := acc.Iterator()
	for it.HasNext() {
		doc := it.Next()
		if ev.phraseAt(field, toks, doc) {
			out.Add(doc)
		}
	}
	if positive && !out.IsEmpty() {
		for _, t := range toks {
			ev.contribs = append(ev.contribs, contrib{field: field, term: t})
		}
	}
	return out
}

func (ev *evaluator) phraseAt(field string, toks []string, doc uint32) bool {
	starts := ev.r.Positions(field, toks[0], doc)
	for _, start := range starts {
		ok := true
		for i, t := range toks[1:] {
			want := start + uint32(i) + 1
			if !containsPos(ev.r.Positions(field, t, doc), want) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func containsPos(positions []uint32, want uint32) bool {
	for _, p := range positions {
		if p == want {
			return true
		}
	}
	return false
}

// score ranks a document by summed tf-idf over the positive terms.
func (ev *evaluator) score(doc uint32) float64 {
	n := float64(ev.r.DocCount())
	var s float64
	for _, c := range ev.contribs {
		tf := float64(len(ev.r.Positions(c.field, c.term, doc)))
		if tf == 0 {
			continue
		}
		df := float64(ev.r.Postings(c.field, c.term).GetCardinality())
		s += tf * (1 + math.Log(n/(1+df)))
	}
	return s
}

// rank materializes the matches in score order, best first, ties broken by
// document id for stable results.
func (ev *evaluator) rank(matches *roaring.Bitmap, limit int) []scoredDoc {
	docs := make([]scoredDoc, 0, matches.GetCardinality())
	it := matches.Iterator()
	for it.HasNext() {
		doc := it.Next()
		docs = append(docs, scoredDoc{id: doc, score: ev.score(doc)})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].score != docs[j].score {
			return docs[i].score > docs[j].score
		}
		return docs[i].id < docs[j].id
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

type scoredDoc struct {
	id    uint32
	score float64
}
