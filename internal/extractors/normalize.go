package extractors

import (
	"strings"
	"unicode"
)

// NormalizeText cleans extracted text for chunking: line endings become
// LF, control characters other than newline are dropped, runs of spaces
// and tabs collapse to a single space, and runs of three or more blank
// lines collapse to one blank line. Leading and trailing whitespace is
// trimmed.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	newlines := 0

	for _, r := range text {
		switch {
		case r == '\n':
			newlines++
			lastSpace = false
			if newlines <= 2 {
				b.WriteRune('\n')
			}
		case r == ' ' || r == '\t':
			newlines = 0
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsControl(r):
			// drop
		default:
			newlines = 0
			lastSpace = false
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
