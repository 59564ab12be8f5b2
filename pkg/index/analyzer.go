package index

import (
	"strings"
	"unicode"
)

// Analyzer turns field text into index terms. Token order defines positions.
type Analyzer interface {
	Tokens(s string) []string
}

// StandardAnalyzer lower-cases and splits on anything that is not a letter
// or digit.
type StandardAnalyzer struct{}

func (StandardAnalyzer) Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// KeywordAnalyzer indexes the whole value as a single term. Used for the
// entity, graph, language and uid fields.
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Tokens(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
