package wiki

import (
	"regexp"
	"strings"
)

// excerptLength is the maximum excerpt size before the ellipsis.
const excerptLength = 200

var (
	mdHeadingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdImageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasisRe = regexp.MustCompile(`[*_]{1,3}`)
	mdCodeRe     = regexp.MustCompile("`+")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Excerpt produces a plain-text summary line from markdown content: strip
// formatting, take the first 200 characters, trim back to the last whole
// word and append an ellipsis.
//
// Idempotent: Excerpt(Excerpt(x)) == Excerpt(x).
func Excerpt(content string) string {
	plain := mdImageRe.ReplaceAllString(content, "")
	plain = mdLinkRe.ReplaceAllString(plain, "$1")
	plain = mdHeadingRe.ReplaceAllString(plain, "")
	plain = mdEmphasisRe.ReplaceAllString(plain, "")
	plain = mdCodeRe.ReplaceAllString(plain, "")
	plain = whitespaceRe.ReplaceAllString(plain, " ")
	plain = strings.TrimSpace(plain)

	if len(plain) <= excerptLength {
		return plain
	}
	// Already-excerpted text is at most excerptLength plus the ellipsis;
	// pass it through unchanged so re-running cannot shorten it further.
	if strings.HasSuffix(plain, "...") && len(plain) <= excerptLength+3 {
		return plain
	}

	cut := plain[:excerptLength]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}

// Title extracts the article title: the first markdown H1 if present,
// otherwise the first non-empty line, otherwise the fallback.
func Title(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
		return strings.TrimSpace(strings.TrimLeft(line, "# "))
	}
	return fallback
}
