package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"

	"chatlens/internal/models"
)

// VaderOracle wraps the VADER lexicon/rule scorer. The analyzer is
// allocated once and is safe for concurrent reads.
type VaderOracle struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderOracle builds the VADER oracle.
func NewVaderOracle() *VaderOracle {
	return &VaderOracle{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Name implements Oracle.
func (o *VaderOracle) Name() string { return OracleVader }

// Score runs VADER over the text and labels the compound polarity.
func (o *VaderOracle) Score(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Neutral(), nil
	}

	compound := o.analyzer.PolarityScores(text).Compound

	label := models.LabelNeutral
	switch {
	case compound >= 0.05:
		label = models.LabelPositive
	case compound <= -0.05:
		label = models.LabelNegative
	}

	return Result{
		Score:      clamp(compound, -1, 1),
		Confidence: DeriveConfidence(compound),
		Label:      label,
	}, nil
}
