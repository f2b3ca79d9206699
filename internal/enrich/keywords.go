package enrich

import (
	"regexp"
	"sort"
	"strings"

	"github.com/forPelevin/gomoji"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "will": {}, "with": {},
	"you": {}, "your": {}, "me": {}, "i": {}, "we": {}, "they": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "why": {},
	"how": {}, "can": {}, "could": {}, "this": {}, "have": {}, "just": {},
}

var (
	urlOrMentionRE = regexp.MustCompile(`http\S+|www\S+|\S+@\S+`)
	wordRE         = regexp.MustCompile(`\b\w+\b`)
)

// KeywordExtractor ranks terms by frequency after stop-word filtering.
type KeywordExtractor struct {
	topK int
}

// NewKeywordExtractor builds an extractor returning at most topK terms
// per message.
func NewKeywordExtractor(topK int) *KeywordExtractor {
	if topK <= 0 {
		topK = 3
	}
	return &KeywordExtractor{topK: topK}
}

// Extract returns the top keywords of the text, most frequent first,
// ties broken alphabetically so identical input always ranks identically.
func (e *KeywordExtractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	clean := urlOrMentionRE.ReplaceAllString(text, "")
	clean = gomoji.RemoveEmojis(clean)

	counts := make(map[string]int)
	for _, w := range wordRE.FindAllString(strings.ToLower(clean), -1) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		counts[w]++
	}
	if len(counts) == 0 {
		return nil
	}

	ranked := sortedKeys(counts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})

	if len(ranked) > e.topK {
		ranked = ranked[:e.topK]
	}
	return ranked
}
