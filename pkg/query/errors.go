package query

import "fmt"

// ParseError reports a malformed query string. It carries the offending
// query and the parser message, and is recoverable: no transaction or index
// state is affected.
type ParseError struct {
	Query   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in query %q: %s", e.Query, e.Message)
}

func parseErr(query, format string, args ...any) *ParseError {
	return &ParseError{Query: query, Message: fmt.Sprintf(format, args...)}
}
