package query

// MaxResults caps a search when the caller requests an unbounded or
// non-positive limit.
const MaxResults = 10000

// LangNone is the sentinel language tag selecting only documents without a
// language field value.
const LangNone = "none"

// Request describes one search. Text is in query syntax; free text from
// users must be passed through Escape first.
type Request struct {
	// Text is the query string.
	Text string
	// Predicate optionally selects the target field through the entity
	// definition's predicate mapping. Unmapped or empty means the primary
	// field.
	Predicate string
	// GraphURI optionally scopes the search to one graph.
	GraphURI string
	// Lang optionally restricts matches by language tag; LangNone selects
	// untagged values.
	Lang string
	// Limit caps the result count; non-positive means MaxResults.
	Limit int
	// Highlight is an option string ("m:2|z:80|s:<<|e:>>"); empty disables
	// highlighting.
	Highlight string
}

// Literal is the reconstructed literal value of a hit: the stored lexical
// form plus either a language tag or a datatype URI.
type Literal struct {
	Lexical  string `json:"lexical"`
	Lang     string `json:"lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Hit is one scored search result.
type Hit struct {
	Subject string   `json:"subject"`
	Score   float64  `json:"score"`
	Literal *Literal `json:"literal,omitempty"`
	Graph   string   `json:"graph,omitempty"`
}
