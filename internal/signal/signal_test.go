package signal

import (
	"math"
	"reflect"
	"testing"
	"time"

	"fx-analyzer/internal/indicators"
	"fx-analyzer/internal/types"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// risingSeries trends up 0.01 per bar with a +/-0.5 zigzag, ending on an up bar.
func risingSeries(n int) types.PriceSeries {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, n)
	for i := range bars {
		c := 100 + 0.01*float64(i) - 0.5
		if i%2 == 1 {
			c += 1.0
		}
		bars[i] = types.PriceBar{Time: start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c}
	}
	return types.PriceSeries{Instrument: "EURUSD=X", Interval: "1h", Period: "60d", Bars: bars}
}

func TestGenerateEmptyFrame(t *testing.T) {
	sig := NewTechnicalGenerator(nil).Generate(types.IndicatorFrame{})

	if sig.Direction != types.Hold || sig.Confidence != 0.3 {
		t.Errorf("Expected HOLD 0.3, got %s %f", sig.Direction, sig.Confidence)
	}
	if !reflect.DeepEqual(sig.Reasons, []string{"no data available"}) {
		t.Errorf("Unexpected reasons: %v", sig.Reasons)
	}
}

func TestGenerateSyntheticUptrend(t *testing.T) {
	frame := indicators.NewEngine(indicators.DefaultParams()).Compute(risingSeries(300))
	last, _ := frame.Latest()

	if last.RSI == nil || *last.RSI < 40 || *last.RSI > 60 {
		t.Fatalf("Fixture RSI should sit in 40-60, got %v", last.RSI)
	}
	if last.MACD == nil || !(*last.MACD > *last.MACDSignal && *last.MACDSignal > 0) {
		t.Fatalf("Fixture should have MACD > signal > 0")
	}
	if !(last.Close > *last.MAFast && *last.MAFast > *last.MASlow) {
		t.Fatalf("Fixture should have close > MA-fast > MA-slow")
	}

	sig := NewTechnicalGenerator(nil).Generate(frame)

	if sig.Direction != types.Buy {
		t.Errorf("Expected BUY, got %s", sig.Direction)
	}
	if sig.Confidence != 0.4 {
		t.Errorf("Expected confidence 0.4, got %f", sig.Confidence)
	}
	want := []string{"bullish crossover", "price above both averages, fast above slow"}
	if !reflect.DeepEqual(sig.Reasons, want) {
		t.Errorf("Expected reasons %v, got %v", want, sig.Reasons)
	}
	if sig.Snapshot.Close != last.Close {
		t.Errorf("Snapshot should carry the last row")
	}
}

func TestGenerateRules(t *testing.T) {
	p := types.Ptr

	tests := []struct {
		name    string
		row     types.IndicatorRow
		dir     types.Direction
		conf    float64
		reasons []string
	}{
		{
			name:    "oversold only",
			row:     types.IndicatorRow{Close: 1, RSI: p(25)},
			dir:     types.Buy,
			conf:    0.3,
			reasons: []string{"oversold"},
		},
		{
			name:    "all sell rules",
			row:     types.IndicatorRow{Close: 1, RSI: p(80), MACD: p(-0.2), MACDSignal: p(-0.1), MAFast: p(1.1), MASlow: p(1.2)},
			dir:     types.Sell,
			conf:    0.7,
			reasons: []string{"overbought", "bearish crossover", "price below both averages, fast below slow"},
		},
		{
			name:    "tie is mixed",
			row:     types.IndicatorRow{Close: 1, RSI: p(25), MACD: p(-0.2), MACDSignal: p(-0.1)},
			dir:     types.Hold,
			conf:    0.4,
			reasons: []string{"mixed signals"},
		},
		{
			name:    "no votes is mixed",
			row:     types.IndicatorRow{Close: 1, RSI: p(50)},
			dir:     types.Hold,
			conf:    0.4,
			reasons: []string{"mixed signals"},
		},
		{
			name:    "nil values skip rules",
			row:     types.IndicatorRow{Close: 1},
			dir:     types.Hold,
			conf:    0.4,
			reasons: []string{"mixed signals"},
		},
		{
			name:    "count beats weight",
			row:     types.IndicatorRow{Close: 2, RSI: p(80), MACD: p(0.2), MACDSignal: p(0.1), MAFast: p(1.5), MASlow: p(1.2)},
			dir:     types.Buy,
			conf:    0.4,
			reasons: []string{"bullish crossover", "price above both averages, fast above slow"},
		},
		{
			name:    "zero MACD does not vote",
			row:     types.IndicatorRow{Close: 1, MACD: p(0), MACDSignal: p(-0.1)},
			dir:     types.Hold,
			conf:    0.4,
			reasons: []string{"mixed signals"},
		},
	}

	gen := NewTechnicalGenerator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := gen.Generate(types.IndicatorFrame{Rows: []types.IndicatorRow{tt.row}})
			if sig.Direction != tt.dir {
				t.Errorf("Expected %s, got %s", tt.dir, sig.Direction)
			}
			if !approx(sig.Confidence, tt.conf) {
				t.Errorf("Expected confidence %f, got %f", tt.conf, sig.Confidence)
			}
			if !reflect.DeepEqual(sig.Reasons, tt.reasons) {
				t.Errorf("Expected reasons %v, got %v", tt.reasons, sig.Reasons)
			}
		})
	}
}

func TestGenerateOnlyLastRow(t *testing.T) {
	frame := types.IndicatorFrame{Rows: []types.IndicatorRow{
		{Close: 1, RSI: types.Ptr(10)},
		{Close: 1, RSI: types.Ptr(90)},
	}}

	sig := NewTechnicalGenerator(nil).Generate(frame)
	if sig.Direction != types.Sell {
		t.Errorf("Expected SELL from the last row, got %s", sig.Direction)
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		tech   types.TechnicalSignal
		score  float64
		dir    types.Direction
		conf   float64
		branch string
	}{
		{"buy confirmed", types.TechnicalSignal{Direction: types.Buy, Confidence: 0.6}, 0.5, types.Buy, 0.57, BranchConfirmed},
		{"buy vetoed", types.TechnicalSignal{Direction: types.Buy, Confidence: 0.6}, -0.4, types.Hold, 0.4, BranchVetoed},
		{"buy unconfirmed", types.TechnicalSignal{Direction: types.Buy, Confidence: 0.6}, -0.1, types.Buy, 0.48, BranchUnconfirmed},
		{"buy confirmed capped", types.TechnicalSignal{Direction: types.Buy, Confidence: 1.0}, 1.0, types.Buy, 0.9, BranchConfirmed},
		{"sell confirmed", types.TechnicalSignal{Direction: types.Sell, Confidence: 0.4}, -0.5, types.Sell, 0.43, BranchConfirmed},
		{"sell vetoed", types.TechnicalSignal{Direction: types.Sell, Confidence: 0.4}, 0.25, types.Hold, 0.4, BranchVetoed},
		{"sell unconfirmed", types.TechnicalSignal{Direction: types.Sell, Confidence: 0.4}, 0.2, types.Sell, 0.32, BranchUnconfirmed},
		{"hold sentiment-led buy", types.TechnicalSignal{Direction: types.Hold, Confidence: 0.4}, 0.35, types.Buy, 0.5, BranchSentimentLed},
		{"hold sentiment-led sell", types.TechnicalSignal{Direction: types.Hold, Confidence: 0.4}, -0.31, types.Sell, 0.5, BranchSentimentLed},
		{"hold neutral", types.TechnicalSignal{Direction: types.Hold, Confidence: 0.3}, 0.3, types.Hold, 0.4, BranchNeutral},
	}

	c := NewCombiner(DefaultCombinerConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := types.SentimentSummary{Score: tt.score}
			final := c.Combine(tt.tech, sent)
			if final.Direction != tt.dir {
				t.Errorf("Expected %s, got %s", tt.dir, final.Direction)
			}
			if !approx(final.Confidence, tt.conf) {
				t.Errorf("Expected confidence %f, got %f", tt.conf, final.Confidence)
			}
			if final.Explanation.Branch != tt.branch {
				t.Errorf("Expected branch %q, got %q", tt.branch, final.Explanation.Branch)
			}
			if !reflect.DeepEqual(final.Explanation.Technical, tt.tech) || final.Explanation.Sentiment != sent {
				t.Errorf("Explanation should carry both inputs verbatim")
			}
		})
	}
}

func TestCombineEmptySentimentIsUnconfirmed(t *testing.T) {
	c := NewCombiner(CombinerConfig{})
	tech := types.TechnicalSignal{Direction: types.Buy, Confidence: 0.4}

	final := c.Combine(tech, types.SentimentSummary{})
	if final.Direction != types.Buy || !approx(final.Confidence, 0.32) {
		t.Errorf("Expected BUY 0.32, got %s %f", final.Direction, final.Confidence)
	}
	if final.Explanation.Branch != BranchUnconfirmed {
		t.Errorf("Expected unconfirmed branch, got %s", final.Explanation.Branch)
	}
}
