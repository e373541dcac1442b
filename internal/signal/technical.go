package signal

import (
	"math"

	"fx-analyzer/internal/types"
)

const (
	maxTechnicalConfidence = 0.8
	mixedConfidence        = 0.4
	noDataConfidence       = 0.3

	ReasonMixed  = "mixed signals"
	ReasonNoData = "no data available"
)

// Rule is one row of the technical rule table. Match reports false when the
// row lacks a value the rule needs.
type Rule struct {
	Name      string
	Direction types.Direction
	Weight    float64
	Reason    string
	Match     func(row types.IndicatorRow) bool
}

// DefaultRules is evaluated in order; reason order follows this table.
var DefaultRules = []Rule{
	{
		Name: "rsi_oversold", Direction: types.Buy, Weight: 0.3, Reason: "oversold",
		Match: func(r types.IndicatorRow) bool { return r.RSI != nil && *r.RSI < 30 },
	},
	{
		Name: "rsi_overbought", Direction: types.Sell, Weight: 0.3, Reason: "overbought",
		Match: func(r types.IndicatorRow) bool { return r.RSI != nil && *r.RSI > 70 },
	},
	{
		Name: "macd_bullish", Direction: types.Buy, Weight: 0.2, Reason: "bullish crossover",
		Match: func(r types.IndicatorRow) bool {
			return r.MACD != nil && r.MACDSignal != nil && *r.MACD > *r.MACDSignal && *r.MACD > 0
		},
	},
	{
		Name: "macd_bearish", Direction: types.Sell, Weight: 0.2, Reason: "bearish crossover",
		Match: func(r types.IndicatorRow) bool {
			return r.MACD != nil && r.MACDSignal != nil && *r.MACD < *r.MACDSignal && *r.MACD < 0
		},
	},
	{
		Name: "ma_uptrend", Direction: types.Buy, Weight: 0.2, Reason: "price above both averages, fast above slow",
		Match: func(r types.IndicatorRow) bool {
			return r.MAFast != nil && r.MASlow != nil && r.Close > *r.MAFast && *r.MAFast > *r.MASlow
		},
	},
	{
		Name: "ma_downtrend", Direction: types.Sell, Weight: 0.2, Reason: "price below both averages, fast below slow",
		Match: func(r types.IndicatorRow) bool {
			return r.MAFast != nil && r.MASlow != nil && r.Close < *r.MAFast && *r.MAFast < *r.MASlow
		},
	},
}

// TechnicalGenerator turns the latest indicator row into a vote-based signal.
type TechnicalGenerator struct {
	rules []Rule
}

// NewTechnicalGenerator uses DefaultRules when rules is empty.
func NewTechnicalGenerator(rules []Rule) *TechnicalGenerator {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &TechnicalGenerator{rules: rules}
}

type tally struct {
	votes   int
	weight  float64
	reasons []string
}

// Generate examines only the last row of frame. The direction with strictly
// more votes wins; a tie or no votes is HOLD.
func (g *TechnicalGenerator) Generate(frame types.IndicatorFrame) types.TechnicalSignal {
	row, ok := frame.Latest()
	if !ok {
		return types.TechnicalSignal{
			Direction:  types.Hold,
			Confidence: noDataConfidence,
			Reasons:    []string{ReasonNoData},
		}
	}

	buy, sell := &tally{}, &tally{}
	for _, rule := range g.rules {
		if !rule.Match(row) {
			continue
		}
		t := buy
		if rule.Direction == types.Sell {
			t = sell
		}
		t.votes++
		t.weight += rule.Weight
		t.reasons = append(t.reasons, rule.Reason)
	}

	var dir types.Direction
	var win *tally
	switch {
	case buy.votes > sell.votes:
		dir, win = types.Buy, buy
	case sell.votes > buy.votes:
		dir, win = types.Sell, sell
	default:
		return types.TechnicalSignal{
			Direction:  types.Hold,
			Confidence: mixedConfidence,
			Reasons:    []string{ReasonMixed},
			Snapshot:   row,
		}
	}

	return types.TechnicalSignal{
		Direction:  dir,
		Confidence: math.Min(maxTechnicalConfidence, win.weight),
		Reasons:    win.reasons,
		Snapshot:   row,
	}
}
