package models

import "time"

// Sentiment labels shared by every oracle and the ensemble.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// ValidLabel reports whether s is one of the three sentiment labels.
func ValidLabel(s string) bool {
	return s == LabelPositive || s == LabelNegative || s == LabelNeutral
}

// OracleScore is the verdict of a single sentiment oracle for one message.
// A failed oracle is recorded with Failed=true and a neutral zero-confidence
// verdict; it is kept in the record so explanations can report it.
type OracleScore struct {
	Oracle     string  `json:"oracle"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
	Failed     bool    `json:"failed,omitempty"`
}

// Sentiment is the fused per-message verdict plus the raw oracle outputs
// it was derived from.
type Sentiment struct {
	OracleScores  []OracleScore `json:"oracle_scores"`
	EnsembleScore float64       `json:"ensemble_score"`
	EnsembleLabel string        `json:"ensemble_label"`
	Confidence    float64       `json:"confidence"`
}

// EmotionWeights is the 5-dimension emotion vector for one message.
// Weights are raw non-negative marker counts; job-level reporting
// normalizes them into percentages.
type EmotionWeights struct {
	Joy      float64 `json:"joy"`
	Anger    float64 `json:"anger"`
	Sadness  float64 `json:"sadness"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
}

// Total returns the sum of all weights.
func (w EmotionWeights) Total() float64 {
	return w.Joy + w.Anger + w.Sadness + w.Fear + w.Surprise
}

// AsMap returns the vector keyed by emotion name.
func (w EmotionWeights) AsMap() map[string]float64 {
	return map[string]float64{
		"joy":      w.Joy,
		"anger":    w.Anger,
		"sadness":  w.Sadness,
		"fear":     w.Fear,
		"surprise": w.Surprise,
	}
}

// MediaURLs groups the URLs found in a message by media class.
type MediaURLs struct {
	Image    []string `json:"image"`
	Video    []string `json:"video"`
	Audio    []string `json:"audio"`
	Document []string `json:"document"`
	Link     []string `json:"link"`
}

// Message is one fully analyzed transcript message. It is written once by
// the job that produced it and never mutated afterwards.
type Message struct {
	ID                 string         `json:"id"`
	JobID              string         `json:"job_id"`
	Timestamp          time.Time      `json:"timestamp"`
	Sender             string         `json:"sender"`
	Text               string         `json:"text"`
	Language           string         `json:"language"`
	LanguageConfidence float64        `json:"language_confidence"`
	Sentiment          Sentiment      `json:"sentiment"`
	Emotions           EmotionWeights `json:"emotions"`
	Keywords           []string       `json:"keywords"`
	Emojis             []string       `json:"emojis"`
	MediaURLs          MediaURLs      `json:"media_urls"`
	CreatedAt          time.Time      `json:"created_at"`
}
