package enrich

import (
	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

// ExtractEmojis returns every emoji occurrence in the text, in order.
// Grapheme clusters keep multi-rune emoji (skin tones, ZWJ sequences)
// intact.
func ExtractEmojis(text string) []string {
	if !gomoji.ContainsEmoji(text) {
		return nil
	}

	var out []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		cluster := gr.Str()
		if gomoji.ContainsEmoji(cluster) {
			out = append(out, cluster)
		}
	}
	return out
}
