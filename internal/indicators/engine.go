package indicators

import (
	"math"

	"fx-analyzer/internal/ta"
	"fx-analyzer/internal/types"
)

// Params holds indicator lookback windows.
type Params struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	MAFast     int
	MASlow     int
	BBPeriod   int
	BBStdDev   float64
}

// DefaultParams returns RSI(14), MACD(12,26,9), MA(50/200) and Bollinger(20, 2).
func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		MAFast:     50,
		MASlow:     200,
		BBPeriod:   20,
		BBStdDev:   2,
	}
}

// Engine derives an IndicatorFrame from a PriceSeries. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	p Params
}

// NewEngine builds an engine, falling back to defaults for unset windows.
func NewEngine(p Params) *Engine {
	d := DefaultParams()
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.MACDFast <= 0 {
		p.MACDFast = d.MACDFast
	}
	if p.MACDSlow <= 0 {
		p.MACDSlow = d.MACDSlow
	}
	if p.MACDSignal <= 0 {
		p.MACDSignal = d.MACDSignal
	}
	if p.MAFast <= 0 {
		p.MAFast = d.MAFast
	}
	if p.MASlow <= 0 {
		p.MASlow = d.MASlow
	}
	if p.BBPeriod <= 0 {
		p.BBPeriod = d.BBPeriod
	}
	if p.BBStdDev <= 0 {
		p.BBStdDev = d.BBStdDev
	}
	return &Engine{p: p}
}

// Params returns the effective windows.
func (e *Engine) Params() Params { return e.p }

// Compute returns one row per bar. An empty series yields an empty frame.
func (e *Engine) Compute(series types.PriceSeries) types.IndicatorFrame {
	if series.Len() == 0 {
		return types.IndicatorFrame{}
	}

	closes := series.Closes()
	rsi := ta.RSISeries(closes, e.p.RSIPeriod)
	macd, macdSig, macdHist := ta.MACD(closes, e.p.MACDFast, e.p.MACDSlow, e.p.MACDSignal)
	maFast := ta.SMASeries(closes, e.p.MAFast)
	maSlow := ta.SMASeries(closes, e.p.MASlow)
	bbMid, bbUp, bbLow := ta.Bollinger(closes, e.p.BBPeriod, e.p.BBStdDev)

	rows := make([]types.IndicatorRow, len(closes))
	for i, c := range closes {
		rows[i] = types.IndicatorRow{
			Close:    c,
			RSI:      opt(rsi[i]),
			MAFast:   opt(maFast[i]),
			MASlow:   opt(maSlow[i]),
			BBUpper:  opt(bbUp[i]),
			BBMiddle: opt(bbMid[i]),
			BBLower:  opt(bbLow[i]),
		}
		// MACD fields are all present or all absent.
		if !math.IsNaN(macd[i]) && !math.IsNaN(macdSig[i]) && !math.IsNaN(macdHist[i]) {
			rows[i].MACD = types.Ptr(macd[i])
			rows[i].MACDSignal = types.Ptr(macdSig[i])
			rows[i].MACDHistogram = types.Ptr(macdHist[i])
		}
	}
	return types.IndicatorFrame{Rows: rows}
}

func opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return types.Ptr(v)
}
