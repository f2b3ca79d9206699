package sentiment

import (
	"testing"

	"chatlens/internal/models"
)

func TestPatternOracleLabels(t *testing.T) {
	t.Parallel()

	o := NewPatternOracle()

	cases := []struct {
		name string
		text string
		want string
	}{
		{"positive", "This is great, I love it", models.LabelPositive},
		{"negative", "This is terrible and awful", models.LabelNegative},
		{"no lexicon hits", "the meeting starts at noon", models.LabelNeutral},
		{"empty", "   ", models.LabelNeutral},
		{"negated positive", "this is not good at all", models.LabelNegative},
		{"intensified negative", "this is really terrible", models.LabelNegative},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := o.Score(tc.text)
			if err != nil {
				t.Fatalf("Score(%q) = %v", tc.text, err)
			}
			if res.Label != tc.want {
				t.Errorf("Score(%q) label = %q (score %v), want %q", tc.text, res.Label, res.Score, tc.want)
			}
			if res.Score < -1 || res.Score > 1 {
				t.Errorf("Score(%q) = %v, out of [-1,1]", tc.text, res.Score)
			}
			if res.Confidence < 0 || res.Confidence > 1 {
				t.Errorf("Confidence(%q) = %v, out of [0,1]", tc.text, res.Confidence)
			}
		})
	}
}

func TestPatternOracleDeterministic(t *testing.T) {
	t.Parallel()

	o := NewPatternOracle()
	first, err := o.Score("I love this, it is really great")
	if err != nil {
		t.Fatalf("Score() = %v", err)
	}
	second, err := o.Score("I love this, it is really great")
	if err != nil {
		t.Fatalf("Score() = %v", err)
	}
	if first != second {
		t.Errorf("repeated Score diverged: %+v vs %+v", first, second)
	}
}

func TestVaderOracle(t *testing.T) {
	t.Parallel()

	o := NewVaderOracle()

	res, err := o.Score("I love this!!! It is amazing")
	if err != nil {
		t.Fatalf("Score() = %v", err)
	}
	if res.Label != models.LabelPositive {
		t.Errorf("positive text label = %q (score %v), want Positive", res.Label, res.Score)
	}

	res, err = o.Score("I hate this, it is the worst")
	if err != nil {
		t.Fatalf("Score() = %v", err)
	}
	if res.Label != models.LabelNegative {
		t.Errorf("negative text label = %q (score %v), want Negative", res.Label, res.Score)
	}

	res, err = o.Score("")
	if err != nil {
		t.Fatalf("Score(\"\") = %v", err)
	}
	if res != Neutral() {
		t.Errorf("empty text = %+v, want neutral zero-confidence", res)
	}
}
