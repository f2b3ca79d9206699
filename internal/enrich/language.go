// Package enrich derives auxiliary per-message signals: language,
// keywords, emoji and media URLs. Every extractor is pure and
// network-free; identical input always yields identical output.
package enrich

import (
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// LanguageDetector wraps trigram language detection with a configured
// fallback for short or ambiguous input.
type LanguageDetector struct {
	fallback      string
	minConfidence float64
}

// NewLanguageDetector builds a detector. Empty fallback defaults to "en".
func NewLanguageDetector(fallback string, minConfidence float64) *LanguageDetector {
	if fallback == "" {
		fallback = "en"
	}
	return &LanguageDetector{fallback: fallback, minConfidence: minConfidence}
}

// Detect returns the ISO 639-1 code and detector confidence. Ambiguous
// or too-short input falls back to the configured default with
// confidence 0 rather than failing.
func (d *LanguageDetector) Detect(text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return d.fallback, 0
	}

	info := whatlanggo.Detect(trimmed)
	code := info.Lang.Iso6391()
	if code == "" || info.Confidence < d.minConfidence {
		return d.fallback, 0
	}
	return code, info.Confidence
}

// LanguageDistribution converts per-message language codes into
// percentages and names the most frequent code. Ties break
// alphabetically so the result is deterministic.
func LanguageDistribution(langs []string) (map[string]float64, string) {
	dist := make(map[string]float64)
	if len(langs) == 0 {
		return dist, ""
	}

	counts := make(map[string]int)
	for _, l := range langs {
		if l == "" {
			l = "unknown"
		}
		counts[l]++
	}

	primary := ""
	best := 0
	for code, n := range counts {
		dist[code] = float64(n) / float64(len(langs)) * 100
		if n > best || (n == best && code < primary) {
			primary = code
			best = n
		}
	}
	return dist, primary
}

// sortedKeys is shared by the deterministic extractors.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
