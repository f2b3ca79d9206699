package sentiment

import (
	"chatlens/internal/models"
)

// FusionConfig fixes the ensemble weights and the confidence penalty
// applied when oracle labels disagree.
type FusionConfig struct {
	Weights             map[string]float64
	DisagreementPenalty float64
}

// DefaultFusionConfig is the two-oracle default: 0.6 vader, 0.4 pattern,
// half confidence on disagreement.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		Weights: map[string]float64{
			OracleVader:   0.6,
			OraclePattern: 0.4,
		},
		DisagreementPenalty: 0.5,
	}
}

// LabelFor maps an ensemble score to its label under the fixed
// thresholds. Boundary values at exactly ±0.05 are Neutral.
func LabelFor(score float64) string {
	switch {
	case score > 0.05:
		return models.LabelPositive
	case score < -0.05:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

// Fuse combines per-oracle verdicts into one ensemble sentiment. Failed
// oracles are kept in the record but contribute nothing; the weights of
// the remaining oracles are renormalized to sum to 1. Confidence is the
// mean of the contributing confidences, scaled by the disagreement
// penalty when their labels differ. The function is pure so the
// explainability layer can re-derive the same agreement metrics.
func Fuse(scores []models.OracleScore, cfg FusionConfig) models.Sentiment {
	if cfg.DisagreementPenalty == 0 {
		cfg.DisagreementPenalty = 0.5
	}

	var weightSum, weighted, confSum float64
	var contributing int
	agreed := true
	firstLabel := ""

	for _, s := range scores {
		if s.Failed {
			continue
		}
		w := cfg.Weights[s.Oracle]
		weighted += s.Score * w
		weightSum += w
		confSum += s.Confidence
		contributing++

		if firstLabel == "" {
			firstLabel = s.Label
		} else if s.Label != firstLabel {
			agreed = false
		}
	}

	if contributing == 0 {
		return models.Sentiment{
			OracleScores:  scores,
			EnsembleScore: 0,
			EnsembleLabel: models.LabelNeutral,
			Confidence:    0,
		}
	}

	var score float64
	if weightSum > 0 {
		score = weighted / weightSum
	} else {
		// No configured weight for any contributing oracle: plain mean.
		for _, s := range scores {
			if !s.Failed {
				score += s.Score
			}
		}
		score /= float64(contributing)
	}
	score = clamp(score, -1, 1)

	confidence := confSum / float64(contributing)
	if !agreed {
		confidence *= cfg.DisagreementPenalty
	}

	return models.Sentiment{
		OracleScores:  scores,
		EnsembleScore: score,
		EnsembleLabel: LabelFor(score),
		Confidence:    round2(clamp(confidence, 0, 1)),
	}
}

// ScoreAll runs the text through every oracle in order. An oracle error
// never aborts the batch: the failure is absorbed as a neutral
// zero-confidence entry flagged Failed.
func ScoreAll(oracles []Oracle, text string) []models.OracleScore {
	out := make([]models.OracleScore, 0, len(oracles))
	for _, o := range oracles {
		res, err := o.Score(text)
		if err != nil {
			n := Neutral()
			out = append(out, models.OracleScore{
				Oracle:     o.Name(),
				Score:      n.Score,
				Confidence: n.Confidence,
				Label:      n.Label,
				Failed:     true,
			})
			continue
		}
		out = append(out, models.OracleScore{
			Oracle:     o.Name(),
			Score:      res.Score,
			Confidence: res.Confidence,
			Label:      res.Label,
		})
	}
	return out
}
