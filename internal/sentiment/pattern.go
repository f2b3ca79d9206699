package sentiment

import (
	"strings"
	"unicode"

	"chatlens/internal/models"
)

// patternLexicon maps sentiment-bearing words to polarity in [-1, 1],
// in the manner of pattern-style polarity/subjectivity scoring.
var patternLexicon = map[string]float64{
	// positive
	"good": 0.7, "great": 0.8, "excellent": 1.0, "amazing": 0.9,
	"awesome": 0.9, "love": 0.8, "happy": 0.8, "wonderful": 0.9,
	"fantastic": 0.9, "best": 1.0, "perfect": 1.0, "beautiful": 0.85,
	"brilliant": 0.9, "nice": 0.6, "fine": 0.4, "glad": 0.6,
	"fun": 0.6, "enjoy": 0.6, "enjoyed": 0.6, "cool": 0.5,
	"thanks": 0.4, "thank": 0.4, "super": 0.6, "lovely": 0.7,
	"like": 0.3, "liked": 0.3, "win": 0.5, "won": 0.5,
	"better": 0.4, "helpful": 0.5, "pleased": 0.6, "excited": 0.7,
	"delighted": 0.9, "impressive": 0.7, "sweet": 0.5, "yes": 0.2,
	// negative
	"bad": -0.7, "terrible": -0.9, "awful": -0.9, "horrible": -0.9,
	"hate": -0.8, "sad": -0.6, "angry": -0.7, "worst": -1.0,
	"disgusting": -0.9, "pathetic": -0.8, "disappointing": -0.7,
	"poor": -0.5, "wrong": -0.5, "broken": -0.5, "annoying": -0.6,
	"stupid": -0.7, "ugly": -0.6, "boring": -0.5, "useless": -0.7,
	"worse": -0.6, "fail": -0.6, "failed": -0.6, "lost": -0.4,
	"problem": -0.4, "sorry": -0.3, "upset": -0.6, "hurt": -0.5,
	"sick": -0.5, "scared": -0.5, "afraid": -0.5, "worried": -0.4,
	"mad": -0.6, "furious": -0.9, "dreadful": -0.9, "mess": -0.5,
}

// negators invert the polarity of the word that follows them.
var negators = map[string]struct{}{
	"not": {}, "never": {}, "no": {}, "cannot": {}, "cant": {},
	"dont": {}, "doesnt": {}, "didnt": {}, "wont": {}, "isnt": {},
	"wasnt": {}, "arent": {}, "aint": {}, "hardly": {}, "neither": {},
}

// intensifiers scale the polarity of the word that follows them.
var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "so": 1.2,
	"totally": 1.3, "absolutely": 1.5, "incredibly": 1.5,
	"quite": 1.1, "slightly": 0.7, "somewhat": 0.8, "barely": 0.6,
}

// PatternOracle is the statistical polarity/subjectivity scorer: a word
// polarity lexicon with negator inversion and intensifier scaling,
// averaged over the sentiment-bearing tokens.
type PatternOracle struct{}

// NewPatternOracle builds the pattern oracle.
func NewPatternOracle() *PatternOracle { return &PatternOracle{} }

// Name implements Oracle.
func (o *PatternOracle) Name() string { return OraclePattern }

// Score averages lexicon polarities over the sentiment-bearing tokens of
// the text. Texts with no lexicon hits are Neutral with zero confidence.
func (o *PatternOracle) Score(text string) (Result, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Neutral(), nil
	}

	var sum float64
	var hits int
	negate := false
	scale := 1.0

	for _, tok := range tokens {
		if _, ok := negators[tok]; ok {
			negate = true
			continue
		}
		if mult, ok := intensifiers[tok]; ok {
			scale *= mult
			continue
		}

		polarity, ok := patternLexicon[tok]
		if ok {
			if negate {
				polarity = -polarity
			}
			sum += clamp(polarity*scale, -1, 1)
			hits++
		}
		negate = false
		scale = 1.0
	}

	if hits == 0 {
		return Neutral(), nil
	}

	score := clamp(sum/float64(hits), -1, 1)

	label := models.LabelNeutral
	switch {
	case score > 0.1:
		label = models.LabelPositive
	case score < -0.1:
		label = models.LabelNegative
	}

	return Result{
		Score:      score,
		Confidence: DeriveConfidence(score),
		Label:      label,
	}, nil
}

// tokenize lowercases the text and splits it into letter runs, folding
// apostrophes so "don't" matches the "dont" negator form.
func tokenize(text string) []string {
	folded := strings.ReplaceAll(strings.ToLower(text), "'", "")
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
