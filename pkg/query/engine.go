package query

import (
	"log/slog"
	"strings"

	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
)

// ReaderOpener opens point-in-time read handles over the committed index
// state.
type ReaderOpener interface {
	OpenReader() (index.Reader, error)
}

// Engine executes search requests against an index.
type Engine struct {
	def *entity.Definition
	idx ReaderOpener
	log *slog.Logger
}

// New creates a query engine over the given index. A nil logger means
// slog.Default().
func New(def *entity.Definition, idx ReaderOpener, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{def: def, idx: idx, log: logger}
}

// Search builds, parses and executes the query for a request and returns
// the ranked hits, eagerly materialized. The read handle is closed before
// Search returns. Malformed query text yields a *ParseError; any other
// failure is an *index.Error wrapping the cause.
func (e *Engine) Search(req Request) ([]Hit, error) {
	qs, textField, _ := buildQueryString(e.def, req)
	e.log.Debug("search", "query", qs, "limit", req.Limit)

	ast, err := Parse(qs)
	if err != nil {
		return nil, err
	}

	r, err := e.idx.OpenReader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	ev := newEvaluator(r, e.def, e.def.PrimaryField)
	matches := ev.eval(ast, true)
	matches.And(r.Live())

	limit := req.Limit
	if limit <= 0 {
		limit = MaxResults
	}

	var opts highlightOpts
	var highlightTerms map[string]bool
	if req.Highlight != "" {
		opts = parseHighlightOpts(req.Highlight)
		highlightTerms = ev.termsForField(textField)
	}

	docs := ev.rank(matches, limit)
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		stored, ok := r.Stored(d.id)
		if !ok {
			continue
		}
		hit := Hit{Subject: stored.Entity, Score: d.score}
		if e.def.GraphField != "" {
			hit.Graph = stored.Graph
		}
		if lexical, ok := stored.Values[textField]; ok && lexical != "" {
			lit := &Literal{Lexical: lexical}
			switch {
			case strings.HasPrefix(stored.Lang, index.DatatypePrefix):
				lit.Datatype = strings.TrimPrefix(stored.Lang, index.DatatypePrefix)
			case stored.Lang != "":
				lit.Lang = stored.Lang
			}
			if req.Highlight != "" {
				// A hit can match through another clause; with nothing to
				// mark up the stored form stands.
				if marked := highlight(lexical, highlightTerms, opts); marked != "" {
					lit.Lexical = marked
				}
			}
			hit.Literal = lit
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// termsForField collects the positive query terms that targeted the base
// text field, directly or through a language variant, for highlighting.
func (ev *evaluator) termsForField(textField string) map[string]bool {
	terms := make(map[string]bool)
	for _, c := range ev.contribs {
		if c.field == textField || strings.HasPrefix(c.field, textField+"_") {
			terms[c.term] = true
		}
	}
	return terms
}
