// Package sentiment scores message text through a set of independent
// oracles and fuses their verdicts into one ensemble result.
package sentiment

import (
	"math"

	"chatlens/internal/models"
)

// Oracle names used in configuration weights and stored records.
const (
	OracleVader      = "vader"
	OraclePattern    = "pattern"
	OracleContextual = "contextual"
)

// Result is one oracle's verdict for a piece of text.
type Result struct {
	Score      float64 // polarity in [-1, 1]
	Confidence float64 // in [0, 1]
	Label      string
}

// Oracle is an independent sentiment scorer. Implementations must treat
// Score as read-only with respect to shared state so one instance can be
// used by every job concurrently.
type Oracle interface {
	Name() string
	Score(text string) (Result, error)
}

// Neutral is the zero-confidence verdict substituted for empty text and
// for oracles that fail internally.
func Neutral() Result {
	return Result{Score: 0, Confidence: 0, Label: models.LabelNeutral}
}

// DeriveConfidence maps a polarity score to a confidence by distance from
// neutral, capped at 1. Used by oracles that do not report their own.
func DeriveConfidence(score float64) float64 {
	return round2(math.Min(math.Abs(score)*1.2, 1.0))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
