// Package query turns a structured search request into an executable index
// query and a ranked result set.
//
// Construction follows a fixed precedence: language-tag "search-for"
// expansion when configured, otherwise a conjunctive language clause (with
// the "none" sentinel negating the language field's existence), then an
// optional graph-scope conjunct. The resulting string is parsed into a
// boolean tree and evaluated against a point-in-time index reader, which is
// always closed before Search returns.
package query
