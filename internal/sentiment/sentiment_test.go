package sentiment

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fx-analyzer/internal/types"
)

func sampleDocs() []types.SentimentDocument {
	return []types.SentimentDocument{
		{Label: "POSITIVE", Score: 0.9},
		{Label: "negative", Score: 0.75},
		{Label: "LABEL_2", Score: 0.6},
		{Label: "NEUTRAL", Score: 0.5},
		{Label: "LABEL_0", Score: 0.95},
		{Label: "LABEL_1", Score: 0.4},
		{Label: "very positive", Score: 0.3},
		{Label: "", Score: 0.2},
		{Label: "NEGATIVE", Score: 0.1},
	}
}

func summariesEqual(a, b types.SentimentSummary) bool {
	return math.Abs(a.Score-b.Score) < 1e-12 &&
		a.Positive == b.Positive && a.Negative == b.Negative &&
		a.Neutral == b.Neutral && a.Total == b.Total
}

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"POSITIVE":  types.LabelPositive,
		"positive":  types.LabelPositive,
		"LABEL_2":   types.LabelPositive,
		"label_2":   types.LabelPositive,
		"NEGATIVE":  types.LabelNegative,
		"LABEL_0":   types.LabelNegative,
		"LABEL_1":   types.LabelNeutral,
		"neutral":   types.LabelNeutral,
		"bullish":   types.LabelNeutral,
		"":          types.LabelNeutral,
		" Negative": types.LabelNegative,
	}
	for in, want := range tests {
		if got := NormalizeLabel(in); got != want {
			t.Errorf("NormalizeLabel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestAggregate(t *testing.T) {
	docs := []types.SentimentDocument{
		{Label: "POSITIVE", Score: 0.8},
		{Label: "POSITIVE", Score: 0.6},
		{Label: "NEGATIVE", Score: 0.9},
		{Label: "NEUTRAL", Score: 0.7},
	}

	s := Aggregate(docs)

	// (0.8 + 0.6 - 0.9) / 4
	if math.Abs(s.Score-0.125) > 1e-12 {
		t.Errorf("Expected score 0.125, got %f", s.Score)
	}
	if s.Positive != 2 || s.Negative != 1 || s.Neutral != 1 || s.Total != 4 {
		t.Errorf("Unexpected counts: %+v", s)
	}
}

func TestAggregateHighConfidenceNegativeOutweighs(t *testing.T) {
	docs := []types.SentimentDocument{
		{Label: "POSITIVE", Score: 0.2},
		{Label: "POSITIVE", Score: 0.2},
		{Label: "POSITIVE", Score: 0.2},
		{Label: "NEGATIVE", Score: 0.99},
	}
	if s := Aggregate(docs); s.Score >= 0 {
		t.Errorf("Expected negative net score, got %f", s.Score)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	if s != (types.SentimentSummary{}) {
		t.Errorf("Expected zero summary, got %+v", s)
	}
}

func TestAggregatePartitionInvariant(t *testing.T) {
	docs := sampleDocs()
	whole := Aggregate(docs)

	partitions := [][]int{
		{9},
		{1, 8},
		{5, 4},
		{2, 2, 2, 2, 1},
		{1, 1, 1, 1, 1, 1, 1, 1, 1},
		{3, 6},
		{4, 1, 4},
	}

	for _, sizes := range partitions {
		var acc Tally
		start := 0
		for _, n := range sizes {
			acc = acc.Merge(TallyOf(docs[start : start+n]))
			start += n
		}
		if got := acc.Summary(); !summariesEqual(got, whole) {
			t.Errorf("Partition %v: got %+v, want %+v", sizes, got, whole)
		}
	}
}

func TestMergeIsAssociative(t *testing.T) {
	docs := sampleDocs()
	a, b, c := TallyOf(docs[:2]), TallyOf(docs[2:6]), TallyOf(docs[6:])

	left := a.Merge(b).Merge(c).Summary()
	right := a.Merge(b.Merge(c)).Summary()
	if !summariesEqual(left, right) {
		t.Errorf("Merge not associative: %+v vs %+v", left, right)
	}
}

func TestBatches(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}

	got := Batches(texts, 5)
	if len(got) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(got))
	}
	if len(got[0]) != 5 || len(got[1]) != 5 || len(got[2]) != 2 {
		t.Errorf("Unexpected batch sizes: %d %d %d", len(got[0]), len(got[1]), len(got[2]))
	}
	if got[2][1] != "l" {
		t.Errorf("Batches should preserve order, got %v", got[2])
	}

	if len(Batches(nil, 5)) != 0 {
		t.Error("Expected no batches for empty input")
	}
	if len(Batches(texts, 0)) != 3 {
		t.Error("Expected default batch size for non-positive size")
	}
}

func TestLexiconClassifier(t *testing.T) {
	lc := NewLexiconClassifier()

	docs, err := lc.Classify(context.Background(), []string{
		"Euro rallies as ECB signals hawkish stance",
		"Dollar slumps on recession fears",
		"Fed minutes due on Wednesday",
		"BOJ turns dovish",
		"RBA signals another hike",
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(docs) != 5 {
		t.Fatalf("Expected 5 documents, got %d", len(docs))
	}

	// the last two carry no general sentiment, only currency-market terms
	want := []string{types.LabelPositive, types.LabelNegative, types.LabelNeutral, types.LabelNegative, types.LabelPositive}
	for i, w := range want {
		if docs[i].Label != w {
			t.Errorf("Doc %d: expected %s, got %s", i, w, docs[i].Label)
		}
		if docs[i].Score < 0 || docs[i].Score > 1 {
			t.Errorf("Doc %d: score out of range %f", i, docs[i].Score)
		}
	}
}

func TestLabelCompound(t *testing.T) {
	tests := []struct {
		compound float64
		label    string
		score    float64
	}{
		{0.6, types.LabelPositive, 0.6},
		{-0.3, types.LabelNegative, 0.3},
		{0.05, types.LabelPositive, 0.05},
		{0.02, types.LabelNeutral, 0.98},
		{0, types.LabelNeutral, 1},
	}

	for _, tt := range tests {
		got := labelCompound(tt.compound)
		if got.Label != tt.label || math.Abs(got.Score-tt.score) > 1e-9 {
			t.Errorf("labelCompound(%v) = %+v, want %s %v", tt.compound, got, tt.label, tt.score)
		}
	}
}

func TestLexiconCompoundClamped(t *testing.T) {
	lc := NewLexiconClassifier()
	c := lc.compound("hawkish hike hikes hiking tightening rally surge rebound bullish upgrade")
	if c != 1 {
		t.Errorf("Expected compound clamped to 1, got %v", c)
	}
}

func TestLexiconClassifierCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLexiconClassifier().Classify(ctx, []string{"euro gains"}); err == nil {
		t.Error("Expected error on cancelled context")
	}
}

func TestLLMClassifierOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "2. Dollar slumps") {
			t.Errorf("Prompt should number headlines, got %+v", req.Messages)
		}
		content := "```json\n[{\"label\":\"positive\",\"score\":0.8},{\"label\":\"NEGATIVE\",\"score\":1.4}]\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	defer srv.Close()

	c, err := NewLLMClassifier(LLMConfig{Provider: "openai", Model: "gpt-4o-mini", Endpoint: srv.URL, APIKey: "test-key"}, nil)
	if err != nil {
		t.Fatalf("NewLLMClassifier failed: %v", err)
	}

	docs, err := c.Classify(context.Background(), []string{"Euro rallies", "Dollar slumps"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if docs[0].Label != types.LabelPositive || docs[0].Score != 0.8 {
		t.Errorf("Unexpected first doc: %+v", docs[0])
	}
	if docs[1].Label != types.LabelNegative || docs[1].Score != 1 {
		t.Errorf("Expected clamped negative doc, got %+v", docs[1])
	}
}

func TestLLMClassifierCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": `[{"label":"POSITIVE","score":0.9}]`}},
		})
	}))
	defer srv.Close()

	c, err := NewLLMClassifier(LLMConfig{Provider: "CLAUDE", Endpoint: srv.URL, APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("NewLLMClassifier failed: %v", err)
	}

	if _, err := c.Classify(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("Expected error when label count does not match batch")
	}
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier(Config{})
	if err != nil {
		t.Fatalf("Expected lexicon default, got error %v", err)
	}
	if _, ok := c.(*LexiconClassifier); !ok {
		t.Errorf("Expected *LexiconClassifier, got %T", c)
	}

	if _, err := NewClassifier(Config{Provider: "FINBERT"}); err == nil {
		t.Error("Expected error for unknown provider")
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClassifier(Config{Provider: "OPENAI"}); err == nil {
		t.Error("Expected error when API key is missing")
	}
}
