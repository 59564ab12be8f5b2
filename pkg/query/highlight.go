package query

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default highlight markers, matching the option string format
// "m:<maxFrags>|z:<fragSize>|s:<start>|e:<end>|f:<sep>|jh:n|jf:n".
const (
	defaultHighlightStart = "↦" // rightwards arrow from bar
	defaultHighlightEnd   = "↤" // leftwards arrow from bar
	defaultFragSep        = "∣" // divides
)

type highlightOpts struct {
	maxFrags  int
	fragSize  int
	start     string
	end       string
	fragSep   string
	joinHi    bool
	joinFrags bool
}

// parseHighlightOpts parses the option string; unknown or malformed options
// keep their defaults.
func parseHighlightOpts(s string) highlightOpts {
	opts := highlightOpts{
		maxFrags:  3,
		fragSize:  128,
		start:     defaultHighlightStart,
		end:       defaultHighlightEnd,
		fragSep:   defaultFragSep,
		joinHi:    true,
		joinFrags: true,
	}
	for _, opt := range strings.Split(strings.TrimSpace(s), "|") {
		opt = strings.TrimSpace(opt)
		switch {
		case strings.HasPrefix(opt, "m:"):
			if n, err := strconv.Atoi(opt[2:]); err == nil && n > 0 {
				opts.maxFrags = n
			}
		case strings.HasPrefix(opt, "z:"):
			if n, err := strconv.Atoi(opt[2:]); err == nil && n > 0 {
				opts.fragSize = n
			}
		case strings.HasPrefix(opt, "s:"):
			opts.start = opt[2:]
		case strings.HasPrefix(opt, "e:"):
			opts.end = opt[2:]
		case strings.HasPrefix(opt, "f:"):
			opts.fragSep = opt[2:]
		case opt == "jh:n":
			opts.joinHi = false
		case opt == "jf:n":
			opts.joinFrags = false
		}
	}
	return opts
}

type span struct {
	start int
	end   int
}

// highlight re-scans the matched field's text for the query terms and
// renders up to maxFrags fragments of at most fragSize bytes, matched
// tokens wrapped in the start/end markers. A presentation transform only:
// ranking and filtering are unaffected.
func highlight(text string, terms map[string]bool, opts highlightOpts) string {
	matches := matchSpans(text, terms, opts.joinHi)
	if len(matches) == 0 {
		return ""
	}

	frags := fragments(text, matches, opts)
	if len(frags) == 0 {
		return ""
	}
	if !opts.joinFrags {
		frags = frags[:1]
	}
	return strings.Join(frags, opts.fragSep)
}

// matchSpans locates query-term tokens in the text. With joinHi, runs of
// matched tokens separated only by whitespace collapse into one span.
func matchSpans(text string, terms map[string]bool, joinHi bool) []span {
	var spans []span
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			i += size
			continue
		}
		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			i += size
		}
		if terms[strings.ToLower(text[start:i])] {
			if joinHi && len(spans) > 0 && onlySpace(text[spans[len(spans)-1].end:start]) {
				spans[len(spans)-1].end = i
			} else {
				spans = append(spans, span{start: start, end: i})
			}
		}
	}
	return spans
}

func onlySpace(s string) bool {
	return strings.TrimSpace(s) == ""
}

// fragments cuts windows of at most fragSize bytes around the match spans,
// marking every span inside a window. Windows are greedy: one fragment
// absorbs all spans that fit.
func fragments(text string, matches []span, opts highlightOpts) []string {
	var out []string
	for i := 0; i < len(matches) && len(out) < opts.maxFrags; {
		first := matches[i]
		fragStart := first.start - opts.fragSize/4
		if fragStart < 0 {
			fragStart = 0
		}
		fragEnd := fragStart + opts.fragSize
		if fragEnd > len(text) {
			fragEnd = len(text)
		}

		var inFrag []span
		for i < len(matches) && matches[i].end <= fragEnd {
			inFrag = append(inFrag, matches[i])
			i++
		}
		if len(inFrag) == 0 {
			// The span itself is longer than the fragment; take it whole.
			inFrag = append(inFrag, first)
			fragEnd = first.end
			i++
		}

		var b strings.Builder
		pos := fragStart
		for _, m := range inFrag {
			b.WriteString(text[pos:m.start])
			b.WriteString(opts.start)
			b.WriteString(text[m.start:m.end])
			b.WriteString(opts.end)
			pos = m.end
		}
		b.WriteString(text[pos:fragEnd])
		out = append(out, b.String())
	}
	return out
}
