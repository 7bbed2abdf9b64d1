package entity

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// minMentionLength discards trivially short matches ("a", "at").
const minMentionLength = 3

// maxContextSentence caps the stored source sentence.
const maxContextSentence = 240

// Candidate patterns, strongest first. Relevance encodes pattern strength:
// explicit domain phrases and age expressions are near-certain topics,
// quoted and capitalized phrases are speculative.
var (
	ageRangePattern = regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:-|–|to)\s*\d{1,2}\s+(?:weeks?|months?|years?)\b`)
	ageOldPattern   = regexp.MustCompile(`(?i)\b\d{1,2}[-\s](?:week|month|year)[-\s]olds?\b`)
	stagePattern    = regexp.MustCompile(`(?i)\b(?:newborns?|infants?|toddlers?|preschoolers?)\b`)
	quotedPattern   = regexp.MustCompile(`"([^"\n]{3,60})"`)
	capitalPattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
)

// domainPhrases are well-known parenting topics matched verbatim.
var domainPhrases = []string{
	"sleep training",
	"sleep regression",
	"tummy time",
	"potty training",
	"separation anxiety",
	"growth spurt",
	"solid foods",
	"baby-led weaning",
	"breastfeeding",
	"postpartum depression",
	"object permanence",
	"co-sleeping",
	"screen time",
	"picky eating",
	"attachment parenting",
	"developmental milestones",
	"positive discipline",
	"stranger anxiety",
}

var domainPattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoteAll(domainPhrases), "|") + `)\b`)

func quoteAll(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.QuoteMeta(p)
	}
	return out
}

// stopwords are function words that never stand alone as a topic.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"with": {}, "from": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "your": {}, "you": {}, "they": {}, "them": {},
	"what": {}, "when": {}, "how": {}, "why": {}, "not": {},
	"can": {}, "will": {}, "may": {}, "should": {}, "about": {},
}

// Relevance scores per pattern class.
const (
	relevanceAge     = 0.9
	relevanceDomain  = 0.85
	relevanceStage   = 0.8
	relevanceQuoted  = 0.7
	relevanceCapital = 0.6
)

// PatternExtractor is the regex-based extraction strategy.
//
// PatternExtractor is safe for concurrent use by multiple goroutines.
type PatternExtractor struct {
	index  SiteIndex
	logger *slog.Logger
}

// NewPatternExtractor creates the heuristic extractor.
func NewPatternExtractor(index SiteIndex, logger *slog.Logger) (*PatternExtractor, error) {
	if index == nil {
		return nil, fmt.Errorf("site index is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternExtractor{index: index, logger: logger}, nil
}

type candidate struct {
	text      string
	relevance float64
	offset    int
}

// Extract finds entity mentions in markdown content, deduplicated by
// normalized slug with the highest-relevance variant winning.
//
// SiteIndex lookups are best-effort: a failing lookup downgrades the
// mention's evidence (no page, zero prior mentions) instead of failing
// the extraction.
func (e *PatternExtractor) Extract(ctx context.Context, content string) ([]Mention, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	text := stripMarkup(content)
	candidates := e.collect(text)

	// Dedup by slug, keeping the highest-relevance variant. Earliest offset
	// wins ties so output order is stable for identical input.
	bySlug := make(map[string]candidate)
	var order []string
	for _, c := range candidates {
		slug := Slugify(c.text)
		if !e.keep(slug, c.text) {
			continue
		}
		prev, seen := bySlug[slug]
		if !seen {
			bySlug[slug] = c
			order = append(order, slug)
			continue
		}
		if c.relevance > prev.relevance {
			c.offset = prev.offset
			bySlug[slug] = c
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return bySlug[order[i]].offset < bySlug[order[j]].offset
	})

	mentions := make([]Mention, 0, len(order))
	for _, slug := range order {
		c := bySlug[slug]

		exists, err := e.index.PageExists(ctx, slug)
		if err != nil {
			e.logger.Warn("page existence lookup failed", "slug", slug, "error", err)
			exists = false
		}
		count, err := e.index.MentionCount(ctx, slug)
		if err != nil {
			e.logger.Warn("mention count lookup failed", "slug", slug, "error", err)
			count = 0
		}

		mentions = append(mentions, Mention{
			Text:            c.text,
			Slug:            slug,
			Confidence:      assignTier(exists, count, c.relevance),
			ContextSentence: sentenceAround(text, c.offset),
			Relevance:       c.relevance,
		})
	}

	e.logger.Debug("entity extraction completed",
		"candidates", len(candidates), "mentions", len(mentions))
	return mentions, nil
}

// collect runs every pattern class over the text.
func (e *PatternExtractor) collect(text string) []candidate {
	var out []candidate

	add := func(locs [][]int, relevance float64, captureGroup bool) {
		for _, loc := range locs {
			start, end := loc[0], loc[1]
			if captureGroup && len(loc) >= 4 {
				start, end = loc[2], loc[3]
			}
			out = append(out, candidate{
				text:      text[start:end],
				relevance: relevance,
				offset:    start,
			})
		}
	}

	add(ageRangePattern.FindAllStringIndex(text, -1), relevanceAge, false)
	add(ageOldPattern.FindAllStringIndex(text, -1), relevanceAge, false)
	add(domainPattern.FindAllStringIndex(text, -1), relevanceDomain, false)
	add(stagePattern.FindAllStringIndex(text, -1), relevanceStage, false)
	add(quotedPattern.FindAllStringSubmatchIndex(text, -1), relevanceQuoted, true)
	add(capitalPattern.FindAllStringIndex(text, -1), relevanceCapital, false)

	return out
}

// keep filters stopwords and too-short matches.
func (e *PatternExtractor) keep(slug, text string) bool {
	if len(strings.TrimSpace(text)) < minMentionLength || slug == "" {
		return false
	}
	words := strings.Split(slug, "-")
	for _, w := range words {
		if _, stop := stopwords[w]; !stop {
			return true
		}
	}
	return false
}

// sentenceAround returns the sentence containing the given offset.
func sentenceAround(text string, offset int) string {
	if offset < 0 || offset >= len(text) {
		return ""
	}
	start := offset
	for start > 0 && !isSentenceBreak(text[start-1]) {
		start--
	}
	end := offset
	for end < len(text) && !isSentenceBreak(text[end]) {
		end++
	}
	if end < len(text) {
		end++ // include the terminator
	}
	sentence := strings.TrimSpace(text[start:end])
	if len(sentence) > maxContextSentence {
		cut := maxContextSentence
		// Back off to a rune boundary so the cap never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(sentence[cut]) {
			cut--
		}
		sentence = sentence[:cut]
	}
	return sentence
}

func isSentenceBreak(b byte) bool {
	return b == '.' || b == '!' || b == '?' || b == '\n'
}

// stripMarkup removes markdown syntax so patterns see prose, not formatting.
var (
	codeFenceRe = regexp.MustCompile("(?s)```.*?```")
	inlineCode  = regexp.MustCompile("`[^`]*`")
	imageRe     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headingRe   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRe  = regexp.MustCompile(`[*_]{1,3}`)
)

func stripMarkup(content string) string {
	s := codeFenceRe.ReplaceAllString(content, " ")
	s = inlineCode.ReplaceAllString(s, " ")
	s = imageRe.ReplaceAllString(s, " ")
	s = linkRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = emphasisRe.ReplaceAllString(s, "")
	return s
}

var _ Extractor = (*PatternExtractor)(nil)
