package sentiment

import (
	"strings"

	"fx-analyzer/internal/types"
)

// NormalizeLabel maps a classifier label onto POSITIVE, NEGATIVE or NEUTRAL.
// Three-class models emit LABEL_0/1/2 for negative/neutral/positive.
func NormalizeLabel(label string) string {
	l := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, types.LabelPositive) || l == "LABEL_2":
		return types.LabelPositive
	case strings.Contains(l, types.LabelNegative) || l == "LABEL_0":
		return types.LabelNegative
	default:
		return types.LabelNeutral
	}
}

// Tally is a running reduction over classified documents. The zero value is
// empty, and Merge is associative, so documents can be reduced batch by batch.
type Tally struct {
	PositiveScore float64
	NegativeScore float64
	NeutralScore  float64
	Positive      int
	Negative      int
	Neutral       int
}

// Add folds one document into the tally.
func (t *Tally) Add(doc types.SentimentDocument) {
	switch NormalizeLabel(doc.Label) {
	case types.LabelPositive:
		t.PositiveScore += doc.Score
		t.Positive++
	case types.LabelNegative:
		t.NegativeScore += doc.Score
		t.Negative++
	default:
		t.NeutralScore += doc.Score
		t.Neutral++
	}
}

// Merge returns the combination of t and o.
func (t Tally) Merge(o Tally) Tally {
	return Tally{
		PositiveScore: t.PositiveScore + o.PositiveScore,
		NegativeScore: t.NegativeScore + o.NegativeScore,
		NeutralScore:  t.NeutralScore + o.NeutralScore,
		Positive:      t.Positive + o.Positive,
		Negative:      t.Negative + o.Negative,
		Neutral:       t.Neutral + o.Neutral,
	}
}

func (t Tally) Total() int { return t.Positive + t.Negative + t.Neutral }

// Summary computes the net polarity (Σpos − Σneg) / total. Neutral documents
// dilute the score without moving it.
func (t Tally) Summary() types.SentimentSummary {
	total := t.Total()
	if total == 0 {
		return types.SentimentSummary{}
	}
	return types.SentimentSummary{
		Score:    (t.PositiveScore - t.NegativeScore) / float64(total),
		Positive: t.Positive,
		Negative: t.Negative,
		Neutral:  t.Neutral,
		Total:    total,
	}
}

// TallyOf reduces docs into a Tally.
func TallyOf(docs []types.SentimentDocument) Tally {
	var t Tally
	for _, d := range docs {
		t.Add(d)
	}
	return t
}

// Aggregate is TallyOf(docs).Summary().
func Aggregate(docs []types.SentimentDocument) types.SentimentSummary {
	return TallyOf(docs).Summary()
}

// Batches splits texts into contiguous chunks of at most size.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}

// DefaultBatchSize is the number of texts sent to a classifier per call.
const DefaultBatchSize = 5
