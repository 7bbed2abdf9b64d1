package entity

import (
	"strings"
	"unicode"
)

// Slugify normalizes entity text into the slug form used as the identity key
// across pages, stubs and connections: lowercase, words joined by single
// hyphens, everything but letters and digits dropped.
func Slugify(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	prevHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
