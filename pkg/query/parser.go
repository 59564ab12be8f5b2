package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// The parser accepts a subset of the classic full-text query syntax:
// terms, quoted phrases, field:term, field:"a phrase", field:(grouped),
// field:* existence, AND/OR (OR is the default between clauses), prefix
// '-' negation, and parentheses. Backslash escapes a metacharacter inside
// a term.

type node interface{}

type termNode struct {
	field string // "" means the default field
	term  string
}

type phraseNode struct {
	field  string
	phrase string
}

type existsNode struct {
	field string
}

type notNode struct {
	kid node
}

type boolNode struct {
	and  bool
	kids []node
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPhrase
	tokAnd
	tokOr
	tokNot
	tokColon
	tokStar
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

type parser struct {
	query  string
	tokens []token
	pos    int
}

// Parse parses a query string into its boolean tree. Malformed input
// produces a *ParseError carrying the original string.
func Parse(query string) (node, error) {
	p := &parser{query: query}
	if err := p.lex(); err != nil {
		return nil, err
	}
	n, err := p.parseBool("")
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, parseErr(query, "unexpected %q", p.peek().text)
	}
	return n, nil
}

func (p *parser) lex() error {
	s := p.query
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			p.tokens = append(p.tokens, token{tokLParen, "("})
			i++
		case r == ')':
			p.tokens = append(p.tokens, token{tokRParen, ")"})
			i++
		case r == ':':
			p.tokens = append(p.tokens, token{tokColon, ":"})
			i++
		case r == '*':
			p.tokens = append(p.tokens, token{tokStar, "*"})
			i++
		case r == '-':
			p.tokens = append(p.tokens, token{tokNot, "-"})
			i++
		case r == '"':
			end := -1
			for j := i + 1; j < len(s); j++ {
				if s[j] == '"' {
					end = j
					break
				}
			}
			if end < 0 {
				return parseErr(p.query, "unterminated phrase")
			}
			p.tokens = append(p.tokens, token{tokPhrase, s[i+1 : end]})
			i = end + 1
		case r == '[' || r == ']' || r == '{' || r == '}' || r == '^' || r == '~' || r == '?':
			return parseErr(p.query, "unsupported syntax %q", string(r))
		default:
			word, rest, err := p.lexWord(s[i:])
			if err != nil {
				return err
			}
			i += rest
			switch word {
			case "AND", "&&":
				p.tokens = append(p.tokens, token{tokAnd, word})
			case "OR", "||":
				p.tokens = append(p.tokens, token{tokOr, word})
			case "NOT":
				p.tokens = append(p.tokens, token{tokNot, word})
			default:
				p.tokens = append(p.tokens, token{tokWord, word})
			}
		}
	}
	p.tokens = append(p.tokens, token{tokEOF, ""})
	return nil
}

// lexWord consumes a term, resolving backslash escapes. Returns the
// unescaped word and the number of input bytes consumed.
func (p *parser) lexWord(s string) (string, int, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\\' {
			if i+size >= len(s) {
				return "", 0, parseErr(p.query, "dangling escape")
			}
			esc, escSize := utf8.DecodeRuneInString(s[i+size:])
			b.WriteRune(esc)
			i += size + escSize
			continue
		}
		if unicode.IsSpace(r) || strings.ContainsRune("():*\"-[]{}^~?", r) {
			break
		}
		if r == '&' || r == '|' {
			// Bare & or | inside a word is kept literal; the operator
			// forms && and || are handled by the caller via whole words.
			b.WriteRune(r)
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}
	if b.Len() == 0 {
		return "", 0, parseErr(p.query, "empty term")
	}
	return b.String(), i, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// parseBool parses a clause list with left-associative AND/OR combination;
// adjacency defaults to OR. field is non-empty inside a field group, where
// bare terms bind to that field.
func (p *parser) parseBool(field string) (node, error) {
	first, err := p.parseClause(field)
	if err != nil {
		return nil, err
	}
	acc := first
	for {
		t := p.peek()
		and := false
		switch t.kind {
		case tokAnd:
			and = true
			p.next()
		case tokOr:
			p.next()
		case tokEOF, tokRParen:
			return acc, nil
		}
		if t.kind == tokAnd || t.kind == tokOr {
			if k := p.peek().kind; k == tokEOF || k == tokRParen {
				return nil, parseErr(p.query, "missing clause after %q", t.text)
			}
		}
		kid, err := p.parseClause(field)
		if err != nil {
			return nil, err
		}
		if b, ok := acc.(*boolNode); ok && b.and == and {
			b.kids = append(b.kids, kid)
		} else {
			acc = &boolNode{and: and, kids: []node{acc, kid}}
		}
	}
}

func (p *parser) parseClause(field string) (node, error) {
	t := p.peek()
	if t.kind == tokNot {
		p.next()
		kid, err := p.parsePrimary(field)
		if err != nil {
			return nil, err
		}
		return &notNode{kid: kid}, nil
	}
	return p.parsePrimary(field)
}

func (p *parser) parsePrimary(field string) (node, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		n, err := p.parseBool(field)
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, parseErr(p.query, "missing closing parenthesis")
		}
		return n, nil
	case tokPhrase:
		return &phraseNode{field: field, phrase: t.text}, nil
	case tokWord:
		if p.peek().kind != tokColon {
			return &termNode{field: field, term: t.text}, nil
		}
		p.next() // colon
		return p.parseFieldValue(t.text)
	case tokEOF:
		return nil, parseErr(p.query, "empty query")
	default:
		return nil, parseErr(p.query, "unexpected %q", t.text)
	}
}

// parseFieldValue parses what follows "field:".
func (p *parser) parseFieldValue(field string) (node, error) {
	t := p.next()
	switch t.kind {
	case tokStar:
		return &existsNode{field: field}, nil
	case tokWord:
		return &termNode{field: field, term: t.text}, nil
	case tokPhrase:
		return &phraseNode{field: field, phrase: t.text}, nil
	case tokLParen:
		n, err := p.parseBool(field)
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, parseErr(p.query, "missing closing parenthesis")
		}
		return n, nil
	default:
		return nil, parseErr(p.query, "missing value for field %q", field)
	}
}
