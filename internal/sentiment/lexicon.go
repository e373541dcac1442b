package sentiment

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/jonreiter/govader"

	"fx-analyzer/internal/types"
)

const (
	// VADER's conventional cut-offs on the compound score.
	polarityThreshold = 0.05
	// fxTermWeight is added to the compound score per currency-market term.
	fxTermWeight = 0.25
)

// LexiconClassifier labels headlines offline with VADER, adjusted by a
// currency-market term list VADER does not know (hawkish, dovish, hikes).
type LexiconClassifier struct {
	vader   *govader.SentimentIntensityAnalyzer
	fxTerms map[string]float64
}

// NewLexiconClassifier creates a classifier with the built-in FX terms
func NewLexiconClassifier() *LexiconClassifier {
	terms := make(map[string]float64, len(fxPositive)+len(fxNegative))
	for _, w := range fxPositive {
		terms[w] = 1
	}
	for _, w := range fxNegative {
		terms[w] = -1
	}
	return &LexiconClassifier{
		vader:   govader.NewSentimentIntensityAnalyzer(),
		fxTerms: terms,
	}
}

// Classify returns one document per text. Score is the strength of the
// polarity: |compound| for POSITIVE/NEGATIVE, 1-|compound| for NEUTRAL.
func (lc *LexiconClassifier) Classify(ctx context.Context, batch []string) ([]types.SentimentDocument, error) {
	out := make([]types.SentimentDocument, len(batch))
	for i, text := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = labelCompound(lc.compound(text))
	}
	return out, nil
}

// compound is VADER's compound score shifted by the FX terms, in [-1, 1].
func (lc *LexiconClassifier) compound(text string) float64 {
	c := lc.vader.PolarityScores(text).Compound
	for _, word := range tokenize(strings.ToLower(text)) {
		c += fxTermWeight * lc.fxTerms[word]
	}
	return math.Max(-1, math.Min(1, c))
}

func labelCompound(c float64) types.SentimentDocument {
	switch {
	case c >= polarityThreshold:
		return types.SentimentDocument{Label: types.LabelPositive, Score: c}
	case c <= -polarityThreshold:
		return types.SentimentDocument{Label: types.LabelNegative, Score: -c}
	default:
		return types.SentimentDocument{Label: types.LabelNeutral, Score: 1 - math.Abs(c)}
	}
}

// tokenize splits text into words
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Terms whose currency meaning general-purpose sentiment misses: a hawkish
// central bank or a rate hike supports the currency, easing weighs on it.
var fxPositive = []string{
	"hawkish", "hike", "hikes", "hiking", "tightening", "rally", "rallies",
	"rallied", "surge", "surges", "rebound", "rebounds", "outperform",
	"bullish", "upgrade", "upgrades", "firmer",
}

var fxNegative = []string{
	"dovish", "cut", "cuts", "cutting", "easing", "slump", "slumps",
	"plunge", "plunges", "selloff", "slide", "slides", "recession",
	"bearish", "downgrade", "downgrades", "softer", "intervention",
}
