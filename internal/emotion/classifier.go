// Package emotion maps message text to a 5-dimension non-negative
// emotion weight vector.
package emotion

import (
	"strings"

	"chatlens/internal/models"
)

// Classifier turns text into emotion weights. The keyword heuristic is
// the default; the interface lets a model-based technique replace it
// without changing the contract.
type Classifier interface {
	Detect(text string) models.EmotionWeights
}

// markers lists the keyword and emoji cues counted for each emotion.
var markers = map[string][]string{
	"joy":      {"happy", "glad", "awesome", "great", "fantastic", "love", "excellent", "😊", "😄", "🎉"},
	"anger":    {"angry", "mad", "furious", "hate", "terrible", "worst", "😠", "🤬", "😤"},
	"sadness":  {"sad", "sorry", "hurt", "upset", "down", "depressed", "😢", "😭", "😔"},
	"fear":     {"afraid", "scared", "worried", "anxious", "nervous", "😨", "😰", "😟"},
	"surprise": {"wow", "amazing", "shocking", "unexpected", "😲", "🤯", "😯"},
}

// KeywordClassifier counts case-insensitive marker occurrences per
// emotion. Weights are raw counts, never negative; job-level reporting
// normalizes them into percentages.
type KeywordClassifier struct{}

// NewKeywordClassifier builds the heuristic classifier.
func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

// Detect implements Classifier.
func (c *KeywordClassifier) Detect(text string) models.EmotionWeights {
	if strings.TrimSpace(text) == "" {
		return models.EmotionWeights{}
	}

	lower := strings.ToLower(text)
	count := func(emotion string) float64 {
		var n int
		for _, m := range markers[emotion] {
			n += strings.Count(lower, m)
		}
		return float64(n)
	}

	return models.EmotionWeights{
		Joy:      count("joy"),
		Anger:    count("anger"),
		Sadness:  count("sadness"),
		Fear:     count("fear"),
		Surprise: count("surprise"),
	}
}

// Distribution normalizes summed per-message weights into percentages
// over a job. All zeros stay zero rather than dividing by zero.
func Distribution(weights []models.EmotionWeights) map[string]float64 {
	var sum models.EmotionWeights
	for _, w := range weights {
		sum.Joy += w.Joy
		sum.Anger += w.Anger
		sum.Sadness += w.Sadness
		sum.Fear += w.Fear
		sum.Surprise += w.Surprise
	}

	dist := sum.AsMap()
	total := sum.Total()
	if total == 0 {
		return dist
	}
	for k, v := range dist {
		dist[k] = v / total * 100
	}
	return dist
}
