package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var conjunction = regexp.MustCompile(`(?i)\s+(?:and|plus|then)\s+`)

// span is a clause of the description as byte offsets into it.
type span struct {
	start, end int
}

// splitSpans breaks a description into clauses on ";", "+", newlines,
// commas that are not digit separators, and the words "and", "plus" and "then".
func splitSpans(desc string) []span {
	var coarse []span
	start := 0
	for i, r := range desc {
		switch r {
		case ';', '+', '\n', '\r':
		case ',':
			if digitAt(desc, i-1, true) && digitAt(desc, i+1, false) {
				continue
			}
		default:
			continue
		}
		coarse = append(coarse, span{start, i})
		start = i + utf8.RuneLen(r)
	}
	coarse = append(coarse, span{start, len(desc)})

	var out []span
	for _, c := range coarse {
		part := desc[c.start:c.end]
		from := 0
		for _, m := range conjunction.FindAllStringIndex(part, -1) {
			out = appendSpan(out, desc, span{c.start + from, c.start + m[0]})
			from = m[1]
		}
		out = appendSpan(out, desc, span{c.start + from, c.end})
	}
	return out
}

func appendSpan(out []span, desc string, s span) []span {
	if cleanSegment(desc[s.start:s.end]) == "" {
		return out
	}
	return append(out, s)
}

func digitAt(s string, i int, before bool) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	var r rune
	if before {
		r, _ = utf8.DecodeLastRuneInString(s[:i+1])
	} else {
		r, _ = utf8.DecodeRuneInString(s[i:])
	}
	return unicode.IsDigit(r)
}

func cleanSegment(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .,:-–")
}
