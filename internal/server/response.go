package server

import (
	"encoding/base64"
	"math"
	"time"

	"fx-analyzer/internal/types"
)

// AnalysisResponse is the wire shape of one analysis.
type AnalysisResponse struct {
	ID                string                  `json:"id,omitempty"`
	Pair              string                  `json:"pair"`
	Timestamp         string                  `json:"timestamp"`
	FinalSignal       types.Direction         `json:"final_signal"`
	Confidence        float64                 `json:"confidence"`
	Branch            string                  `json:"branch,omitempty"`
	TechnicalAnalysis *TechnicalResponse      `json:"technical_analysis,omitempty"`
	SentimentAnalysis *types.SentimentSummary `json:"sentiment_analysis,omitempty"`
	NewsHeadlines     []string                `json:"news_headlines,omitempty"`
	Chart             *string                 `json:"chart,omitempty"`
	DataPoints        int                     `json:"data_points,omitempty"`
	Period            string                  `json:"period,omitempty"`
	Interval          string                  `json:"interval,omitempty"`
	Error             string                  `json:"error,omitempty"`
}

type TechnicalResponse struct {
	Signal     types.Direction    `json:"signal"`
	Confidence float64            `json:"confidence"`
	Details    TechnicalDetails   `json:"details"`
	Indicators IndicatorsResponse `json:"indicators"`
}

type TechnicalDetails struct {
	Reasons []string `json:"reasons"`
	RSI     *float64 `json:"rsi"`
	MACD    *float64 `json:"macd"`
}

// IndicatorsResponse uses null for values whose lookback was not satisfied.
type IndicatorsResponse struct {
	RSI        *float64 `json:"rsi"`
	MACD       *float64 `json:"macd"`
	ClosePrice float64  `json:"close_price"`
	MA50       *float64 `json:"ma50"`
	MA200      *float64 `json:"ma200"`
}

// NewsResponse is returned by the news endpoint.
type NewsResponse struct {
	Headlines []string               `json:"headlines"`
	Sentiment types.SentimentSummary `json:"sentiment"`
	Timestamp string                 `json:"timestamp"`
}

type HistoryResponse struct {
	Results []AnalysisResponse `json:"results"`
	Count   int                `json:"count"`
}

type PairInfo struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var majorPairs = []PairInfo{
	{Symbol: "EURUSD=X", Name: "EUR/USD", Description: "Euro to US Dollar"},
	{Symbol: "GBPUSD=X", Name: "GBP/USD", Description: "British Pound to US Dollar"},
	{Symbol: "USDJPY=X", Name: "USD/JPY", Description: "US Dollar to Japanese Yen"},
	{Symbol: "AUDUSD=X", Name: "AUD/USD", Description: "Australian Dollar to US Dollar"},
	{Symbol: "USDCAD=X", Name: "USD/CAD", Description: "US Dollar to Canadian Dollar"},
	{Symbol: "USDCHF=X", Name: "USD/CHF", Description: "US Dollar to Swiss Franc"},
	{Symbol: "EURGBP=X", Name: "EUR/GBP", Description: "Euro to British Pound"},
	{Symbol: "EURJPY=X", Name: "EUR/JPY", Description: "Euro to Japanese Yen"},
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	return types.Ptr(round(*v, places))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// toResponse shapes a result for the wire. withChart controls whether the
// chart field is present; history responses blank it.
func toResponse(res *types.AnalysisResult, withChart bool) AnalysisResponse {
	out := AnalysisResponse{
		ID:          res.ID,
		Pair:        res.Request.Instrument,
		Timestamp:   formatTime(res.Timestamp),
		FinalSignal: res.Final.Direction,
		Confidence:  round(res.Final.Confidence, 3),
		Period:      res.Request.Period,
		Interval:    res.Request.Interval,
		Error:       res.Error,
	}
	if res.Error != "" {
		return out
	}

	snap := res.Technical.Snapshot
	out.Branch = res.Final.Explanation.Branch
	out.TechnicalAnalysis = &TechnicalResponse{
		Signal:     res.Technical.Direction,
		Confidence: round(res.Technical.Confidence, 3),
		Details: TechnicalDetails{
			Reasons: append([]string{}, res.Technical.Reasons...),
			RSI:     snap.RSI,
			MACD:    snap.MACD,
		},
		Indicators: IndicatorsResponse{
			RSI:        roundPtr(snap.RSI, 2),
			MACD:       roundPtr(snap.MACD, 4),
			ClosePrice: round(snap.Close, 5),
			MA50:       roundPtr(snap.MAFast, 5),
			MA200:      roundPtr(snap.MASlow, 5),
		},
	}
	sent := res.Sentiment
	out.SentimentAnalysis = &sent
	out.NewsHeadlines = append([]string{}, res.Headlines...)
	out.DataPoints = res.DataPoints

	chart := ""
	if withChart && len(res.Chart) > 0 {
		chart = base64.StdEncoding.EncodeToString(res.Chart)
	}
	out.Chart = &chart
	return out
}
