package models

import (
	"encoding/json"
	"fmt"
)

// RankedPair is a name/count ranking entry. It marshals as a two-element
// array, e.g. ["Alice",2], matching the shape the query layer exposes.
type RankedPair struct {
	Key   string
	Count int
}

// MarshalJSON encodes the pair as ["key",count].
func (p RankedPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Key, p.Count})
}

// UnmarshalJSON decodes ["key",count].
func (p *RankedPair) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ranked pair must be a two-element array: %w", err)
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("ranked pair key: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Count); err != nil {
		return fmt.Errorf("ranked pair count: %w", err)
	}
	return nil
}

// OverallSentiment is the job-level ensemble aggregate: the mean ensemble
// score over all messages and its label under the fixed thresholds.
type OverallSentiment struct {
	EnsembleScore float64 `json:"ensemble_score"`
	EnsembleLabel string  `json:"ensemble_label"`
}

// AnalysisResult is the job-scoped aggregate computed once at completion.
type AnalysisResult struct {
	TotalMessages        int                `json:"total_messages"`
	OverallSentiment     OverallSentiment   `json:"overall_sentiment"`
	LanguageDistribution map[string]float64 `json:"language_distribution"`
	PrimaryLanguage      string             `json:"primary_language"`
	EmotionDistribution  map[string]float64 `json:"emotion_distribution"`
	MostActiveUsers      []RankedPair       `json:"most_active_users"`
	TopEmojis            []RankedPair       `json:"top_emojis"`
	Messages             []Message          `json:"messages"`
	FailedLineSample     []string           `json:"failed_line_sample,omitempty"`
	FailedLineCount      int                `json:"failed_line_count"`
}

// SentimentBucket is one label's slice of the filtered sentiment
// distribution.
type SentimentBucket struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// FilterStats are aggregate statistics computed over the currently
// filtered view of the store, never over raw analysis state.
type FilterStats struct {
	TotalMessages         int                        `json:"total_messages"`
	SentimentDistribution map[string]SentimentBucket `json:"sentiment_distribution"`
	LanguageDistribution  map[string]int             `json:"language_distribution"`
	TopSenders            []RankedPair               `json:"top_senders"`
	AverageScore          float64                    `json:"average_sentiment_score"`
}
