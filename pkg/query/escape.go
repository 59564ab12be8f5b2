package query

import "strings"

// Escape backslash-escapes the structural query-syntax metacharacters in
// user-supplied text so it can be embedded in a query string verbatim.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '+', '-', '!', '(', ')', '{', '}', '[', ']', '^', '"', '~', '*', '?', ':', '\\', '/', '&', '|':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
