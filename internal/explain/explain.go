// Package explain reconstructs per-oracle breakdowns, agreement metrics
// and contributing evidence for stored messages. It only reads finalized
// records and re-derives agreement from the same rules the fusion engine
// applied, never re-scoring text.
package explain

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"chatlens/internal/models"
	"chatlens/internal/repository"
)

// ModelAnalysis is one oracle's (or the ensemble's) stored verdict with
// a human-readable explanation.
type ModelAnalysis struct {
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Label       string  `json:"label"`
	Explanation string  `json:"explanation"`
}

// Disagreement describes a label split between oracles. It is present
// in an explanation only when non-failed oracle labels actually differ.
type Disagreement struct {
	Oracles        []string          `json:"oracles"`
	Labels         map[string]string `json:"labels"`
	PossibleReason string            `json:"possible_reason"`
	Recommendation string            `json:"recommendation"`
}

// ConfidenceMetrics quantify how much the oracles agreed on a message.
type ConfidenceMetrics struct {
	ModelAgreementScore    float64            `json:"model_agreement_score"`
	OverallConfidenceLevel string             `json:"overall_confidence_level"`
	OracleConfidences      map[string]float64 `json:"oracle_confidences"`
	Recommendation         string             `json:"recommendation"`
}

// ImportantWords are the lexicon hits contributing sentiment evidence.
type ImportantWords struct {
	PositiveIndicators []string `json:"positive_indicators"`
	NegativeIndicators []string `json:"negative_indicators"`
}

// FinalVerdict mirrors the stored ensemble result verbatim.
type FinalVerdict struct {
	Sentiment  string  `json:"sentiment"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Explanation is the full explainability payload for one message.
type Explanation struct {
	MessageID         string                   `json:"message_id"`
	TextPreview       string                   `json:"text_preview"`
	PerModelAnalysis  map[string]ModelAnalysis `json:"per_model_analysis"`
	Disagreement      *Disagreement            `json:"disagreement,omitempty"`
	ConfidenceMetrics ConfidenceMetrics        `json:"confidence_metrics"`
	ImportantWords    ImportantWords           `json:"important_words"`
	FinalVerdict      FinalVerdict             `json:"final_verdict"`
}

// DisagreementEntry is one message whose stored oracle labels differ.
type DisagreementEntry struct {
	MessageID string            `json:"message_id"`
	Text      string            `json:"text"`
	Labels    map[string]string `json:"labels"`
	Ensemble  string            `json:"ensemble_label"`
}

// DisagreementReport lists every disagreement within one job.
type DisagreementReport struct {
	JobID            string              `json:"job_id"`
	TotalMessages    int                 `json:"total_messages"`
	Disagreements    []DisagreementEntry `json:"disagreements"`
	DisagreementRate float64             `json:"disagreement_rate"`
}

// Service answers explanation lookups over the message store.
type Service struct {
	store  repository.MessageStore
	logger *zap.Logger
}

// NewService builds the explainability service.
func NewService(store repository.MessageStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Explain reconstructs the full explanation for one stored message.
// Unknown ids propagate NotFound, never a fabricated payload.
func (s *Service) Explain(ctx context.Context, messageID string) (*Explanation, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	perModel := make(map[string]ModelAnalysis, len(msg.Sentiment.OracleScores)+1)
	for _, score := range msg.Sentiment.OracleScores {
		perModel[score.Oracle] = ModelAnalysis{
			Score:       round3(score.Score),
			Confidence:  score.Confidence,
			Label:       score.Label,
			Explanation: explainOracle(score),
		}
	}
	perModel["ensemble"] = ModelAnalysis{
		Score:       round3(msg.Sentiment.EnsembleScore),
		Confidence:  msg.Sentiment.Confidence,
		Label:       msg.Sentiment.EnsembleLabel,
		Explanation: "Weighted combination of the configured oracles, renormalized over the oracles that answered.",
	}

	return &Explanation{
		MessageID:         msg.ID,
		TextPreview:       preview(msg.Text, 100),
		PerModelAnalysis:  perModel,
		Disagreement:      findDisagreement(msg.Sentiment.OracleScores),
		ConfidenceMetrics: confidenceMetrics(msg.Sentiment),
		ImportantWords: ImportantWords{
			PositiveIndicators: lexiconHits(msg.Text, positiveIndicators),
			NegativeIndicators: lexiconHits(msg.Text, negativeIndicators),
		},
		FinalVerdict: FinalVerdict{
			Sentiment:  msg.Sentiment.EnsembleLabel,
			Score:      msg.Sentiment.EnsembleScore,
			Confidence: msg.Sentiment.Confidence,
		},
	}, nil
}

// JobDisagreements scans a job's stored messages for label splits. A
// job with no stored messages is NotFound.
func (s *Service) JobDisagreements(ctx context.Context, jobID string) (*DisagreementReport, error) {
	msgs, err := s.store.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("job %s has no stored messages: %w", jobID, models.ErrNotFound)
	}

	report := &DisagreementReport{
		JobID:         jobID,
		TotalMessages: len(msgs),
		Disagreements: []DisagreementEntry{},
	}
	for _, msg := range msgs {
		if d := findDisagreement(msg.Sentiment.OracleScores); d != nil {
			report.Disagreements = append(report.Disagreements, DisagreementEntry{
				MessageID: msg.ID,
				Text:      preview(msg.Text, 100),
				Labels:    d.Labels,
				Ensemble:  msg.Sentiment.EnsembleLabel,
			})
		}
	}
	report.DisagreementRate = float64(len(report.Disagreements)) / float64(len(msgs))
	return report, nil
}

// findDisagreement reports the label split between non-failed oracles,
// or nil when they all agree.
func findDisagreement(scores []models.OracleScore) *Disagreement {
	var active []models.OracleScore
	for _, s := range scores {
		if !s.Failed {
			active = append(active, s)
		}
	}
	if len(active) < 2 {
		return nil
	}

	split := false
	for _, s := range active[1:] {
		if s.Label != active[0].Label {
			split = true
			break
		}
	}
	if !split {
		return nil
	}

	d := &Disagreement{Labels: make(map[string]string, len(active))}
	var minScore, maxScore float64 = active[0].Score, active[0].Score
	for _, s := range active {
		d.Oracles = append(d.Oracles, s.Oracle)
		d.Labels[s.Oracle] = s.Label
		minScore = math.Min(minScore, s.Score)
		maxScore = math.Max(maxScore, s.Score)
	}

	if maxScore-minScore > 0.5 {
		d.PossibleReason = "Large difference in scores suggests mixed or complex sentiment. " +
			"Text may contain sarcasm, irony, or both positive and negative elements."
	} else {
		d.PossibleReason = "Models are close but on opposite sides of neutral. " +
			"Text likely has subtle sentiment indicators that differ in interpretation."
	}
	d.Recommendation = "Manual review recommended for this message"
	return d
}

// confidenceMetrics derives the numeric agreement score from the spread
// of the stored non-failed oracle scores.
func confidenceMetrics(s models.Sentiment) ConfidenceMetrics {
	confidences := make(map[string]float64, len(s.OracleScores))
	var minScore, maxScore float64
	first := true
	for _, score := range s.OracleScores {
		confidences[score.Oracle] = score.Confidence
		if score.Failed {
			continue
		}
		if first {
			minScore, maxScore = score.Score, score.Score
			first = false
			continue
		}
		minScore = math.Min(minScore, score.Score)
		maxScore = math.Max(maxScore, score.Score)
	}

	agreement := 1.0
	if !first {
		agreement = math.Max(0, 1-(maxScore-minScore)/2)
	}
	agreement = math.Round(agreement*100) / 100

	level := "low"
	recommendation := "Low confidence - consider manual verification for this message"
	switch {
	case agreement > 0.8:
		level = "high"
		recommendation = "High confidence - reliable sentiment classification"
	case agreement > 0.5:
		level = "medium"
		recommendation = "Medium confidence - generally reliable with some uncertainty"
	}

	return ConfidenceMetrics{
		ModelAgreementScore:    agreement,
		OverallConfidenceLevel: level,
		OracleConfidences:      confidences,
		Recommendation:         recommendation,
	}
}

// explainOracle renders a stored verdict in a readable register, scaled
// by how decisive the score was.
func explainOracle(s models.OracleScore) string {
	if s.Failed {
		return fmt.Sprintf("%s failed for this message and contributed a neutral zero-confidence result.", displayName(s.Oracle))
	}

	strength := "slightly"
	switch {
	case s.Confidence > 0.7:
		strength = "strongly"
	case s.Confidence > 0.4:
		strength = "moderately"
	}

	name := displayName(s.Oracle)
	technique := oracleTechniques[s.Oracle]
	switch s.Label {
	case models.LabelPositive:
		return fmt.Sprintf("%s %s detects positive sentiment (%.2f). %s", name, strength, s.Score, technique)
	case models.LabelNegative:
		return fmt.Sprintf("%s %s detects negative sentiment (%.2f). %s", name, strength, s.Score, technique)
	default:
		return fmt.Sprintf("%s detects neutral sentiment (%.2f). Mixed sentiment cues or lacks clear sentiment indicators.", name, s.Score)
	}
}

var oracleTechniques = map[string]string{
	"vader":      "Uses lexicon-based scoring with emphasis on sentiment-bearing words and punctuation.",
	"pattern":    "Uses word-level polarity analysis with negation and intensifier handling.",
	"contextual": "Uses a contextual language model judging the message as a whole.",
}

func displayName(oracle string) string {
	if oracle == "vader" {
		return "VADER"
	}
	return strings.ToUpper(oracle[:1]) + oracle[1:]
}

var positiveIndicators = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {}, "awesome": {},
	"love": {}, "happy": {}, "wonderful": {}, "fantastic": {}, "best": {},
	"perfect": {}, "beautiful": {}, "brilliant": {},
}

var negativeIndicators = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "hate": {},
	"sad": {}, "angry": {}, "worst": {}, "disgusting": {}, "pathetic": {},
	"disappointing": {}, "poor": {},
}

var wordRE = regexp.MustCompile(`\b[a-z]+\b`)

// lexiconHits returns up to 10 indicator words found in the text, in
// text order.
func lexiconHits(text string, indicators map[string]struct{}) []string {
	var hits []string
	for _, w := range wordRE.FindAllString(strings.ToLower(text), -1) {
		if _, ok := indicators[w]; ok {
			hits = append(hits, w)
			if len(hits) == 10 {
				break
			}
		}
	}
	return hits
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
