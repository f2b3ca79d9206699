package sentiment

import (
	"errors"
	"math"
	"testing"

	"chatlens/internal/models"
)

func TestLabelForThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  string
	}{
		{0.05, models.LabelNeutral},
		{0.0501, models.LabelPositive},
		{-0.05, models.LabelNeutral},
		{-0.0501, models.LabelNegative},
		{0, models.LabelNeutral},
		{1, models.LabelPositive},
		{-1, models.LabelNegative},
	}

	for _, tc := range cases {
		if got := LabelFor(tc.score); got != tc.want {
			t.Errorf("LabelFor(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestFuseWeightedSum(t *testing.T) {
	t.Parallel()

	scores := []models.OracleScore{
		{Oracle: OracleVader, Score: 0.8, Confidence: 0.9, Label: models.LabelPositive},
		{Oracle: OraclePattern, Score: 0.5, Confidence: 0.6, Label: models.LabelPositive},
	}

	got := Fuse(scores, DefaultFusionConfig())

	want := 0.6*0.8 + 0.4*0.5
	if math.Abs(got.EnsembleScore-want) > 1e-9 {
		t.Errorf("EnsembleScore = %v, want %v", got.EnsembleScore, want)
	}
	if got.EnsembleLabel != models.LabelPositive {
		t.Errorf("EnsembleLabel = %q, want Positive", got.EnsembleLabel)
	}
	// Full agreement: confidence is the mean of the oracle confidences.
	if got.Confidence != 0.75 {
		t.Errorf("Confidence = %v, want 0.75", got.Confidence)
	}
}

func TestFuseRenormalizesWhenOracleFails(t *testing.T) {
	t.Parallel()

	scores := []models.OracleScore{
		{Oracle: OracleVader, Score: 0.8, Confidence: 0.9, Label: models.LabelPositive},
		{Oracle: OraclePattern, Failed: true, Label: models.LabelNeutral},
	}

	got := Fuse(scores, DefaultFusionConfig())

	// Only vader contributes; its weight renormalizes to 1.
	if math.Abs(got.EnsembleScore-0.8) > 1e-9 {
		t.Errorf("EnsembleScore = %v, want 0.8", got.EnsembleScore)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", got.Confidence)
	}
	if len(got.OracleScores) != 2 {
		t.Errorf("OracleScores kept %d entries, want 2 (failed entry preserved)", len(got.OracleScores))
	}
}

func TestFuseDisagreementPenalizesConfidence(t *testing.T) {
	t.Parallel()

	agree := []models.OracleScore{
		{Oracle: OracleVader, Score: 0.6, Confidence: 0.7, Label: models.LabelPositive},
		{Oracle: OraclePattern, Score: 0.4, Confidence: 0.5, Label: models.LabelPositive},
	}
	disagree := []models.OracleScore{
		{Oracle: OracleVader, Score: 0.6, Confidence: 0.7, Label: models.LabelPositive},
		{Oracle: OraclePattern, Score: -0.4, Confidence: 0.5, Label: models.LabelNegative},
	}

	cfg := DefaultFusionConfig()
	agreed := Fuse(agree, cfg)
	split := Fuse(disagree, cfg)

	if agreed.Confidence != 0.6 {
		t.Errorf("agreement Confidence = %v, want 0.6", agreed.Confidence)
	}
	if split.Confidence != 0.3 {
		t.Errorf("disagreement Confidence = %v, want 0.3", split.Confidence)
	}
	if split.Confidence >= agreed.Confidence {
		t.Errorf("disagreement confidence %v not below agreement confidence %v", split.Confidence, agreed.Confidence)
	}
}

func TestFuseAllOraclesFailed(t *testing.T) {
	t.Parallel()

	scores := []models.OracleScore{
		{Oracle: OracleVader, Failed: true, Label: models.LabelNeutral},
		{Oracle: OraclePattern, Failed: true, Label: models.LabelNeutral},
	}

	got := Fuse(scores, DefaultFusionConfig())
	if got.EnsembleScore != 0 || got.Confidence != 0 || got.EnsembleLabel != models.LabelNeutral {
		t.Errorf("all-failed fusion = %+v, want neutral zero-confidence", got)
	}
}

type failingOracle struct{}

func (failingOracle) Name() string                 { return "failing" }
func (failingOracle) Score(string) (Result, error) { return Result{}, errors.New("boom") }

func TestScoreAllAbsorbsOracleFailure(t *testing.T) {
	t.Parallel()

	oracles := []Oracle{NewVaderOracle(), failingOracle{}}
	scores := ScoreAll(oracles, "I love this!")

	if len(scores) != 2 {
		t.Fatalf("ScoreAll returned %d entries, want 2", len(scores))
	}
	if scores[0].Failed {
		t.Errorf("vader entry flagged failed: %+v", scores[0])
	}
	if !scores[1].Failed {
		t.Errorf("failing oracle entry not flagged: %+v", scores[1])
	}
	if scores[1].Score != 0 || scores[1].Confidence != 0 || scores[1].Label != models.LabelNeutral {
		t.Errorf("failed entry = %+v, want neutral zero-confidence", scores[1])
	}
}
