package types

import "time"

// Direction is a trading recommendation.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// PriceBar is a single OHLCV bar.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered, duplicate-free run of bars for one instrument.
type PriceSeries struct {
	Instrument string     `json:"instrument"`
	Interval   string     `json:"interval"`
	Period     string     `json:"period"`
	Bars       []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts close prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Ptr returns a pointer to v. Indicator fields use nil for "lookback window
// not yet satisfied"; a non-nil zero is a real computed zero.
func Ptr(v float64) *float64 { return &v }

// IndicatorRow holds every indicator for one bar.
type IndicatorRow struct {
	Close         float64  `json:"close"`
	RSI           *float64 `json:"rsi"`
	MACD          *float64 `json:"macd"`
	MACDSignal    *float64 `json:"macd_signal"`
	MACDHistogram *float64 `json:"macd_histogram"`
	MAFast        *float64 `json:"ma_fast"`
	MASlow        *float64 `json:"ma_slow"`
	BBUpper       *float64 `json:"bb_upper"`
	BBMiddle      *float64 `json:"bb_middle"`
	BBLower       *float64 `json:"bb_lower"`
}

// IndicatorFrame is aligned index-for-index with the PriceSeries it was built from.
type IndicatorFrame struct {
	Rows []IndicatorRow `json:"rows"`
}

// Len returns the number of rows.
func (f IndicatorFrame) Len() int { return len(f.Rows) }

// Latest returns the last row, or false for an empty frame.
func (f IndicatorFrame) Latest() (IndicatorRow, bool) {
	if len(f.Rows) == 0 {
		return IndicatorRow{}, false
	}
	return f.Rows[len(f.Rows)-1], true
}

// TechnicalSignal is the rule-engine verdict on the latest indicator row.
type TechnicalSignal struct {
	Direction  Direction    `json:"direction"`
	Confidence float64      `json:"confidence"`
	Reasons    []string     `json:"reasons"`
	Snapshot   IndicatorRow `json:"snapshot"`
}

// Sentiment labels emitted by classifiers.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

// SentimentDocument is the classification of one text.
type SentimentDocument struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SentimentSummary is the aggregate polarity of a batch of documents.
type SentimentSummary struct {
	Score       float64 `json:"sentiment_score"`
	Positive    int     `json:"positive_count"`
	Negative    int     `json:"negative_count"`
	Neutral     int     `json:"neutral_count"`
	Total       int     `json:"total_analyzed"`
	SourceError string  `json:"error,omitempty"`
}

// Explanation records the inputs and branch behind a FinalSignal.
type Explanation struct {
	Technical TechnicalSignal  `json:"technical"`
	Sentiment SentimentSummary `json:"sentiment"`
	Branch    string           `json:"branch"`
}

// FinalSignal is the fused recommendation.
type FinalSignal struct {
	Direction   Direction   `json:"direction"`
	Confidence  float64     `json:"confidence"`
	Explanation Explanation `json:"explanation"`
}

// AnalysisRequest identifies what to analyze.
type AnalysisRequest struct {
	Instrument string `json:"pair"`
	Interval   string `json:"interval"`
	Period     string `json:"period"`
}

// AnalysisResult is everything produced by one analysis.
type AnalysisResult struct {
	ID         string           `json:"id"`
	Request    AnalysisRequest  `json:"request"`
	Timestamp  time.Time        `json:"timestamp"`
	Final      FinalSignal      `json:"final"`
	Technical  TechnicalSignal  `json:"technical"`
	Sentiment  SentimentSummary `json:"sentiment"`
	Headlines  []string         `json:"headlines"`
	DataPoints int              `json:"data_points"`
	Chart      []byte           `json:"-"`
	Error      string           `json:"error,omitempty"`
}
