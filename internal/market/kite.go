package market

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"fx-analyzer/internal/types"
)

// Kite limits how much intraday history one request may span.
const maxKiteIntradaySpan = 60 * 24 * time.Hour

var kiteIntervals = map[string]string{
	"1m":  "minute",
	"5m":  "5minute",
	"15m": "15minute",
	"30m": "30minute",
	"60m": "60minute",
	"1h":  "60minute",
	"1d":  "day",
}

// historyClient is the part of the Kite Connect client used for candles.
type historyClient interface {
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

// KiteSource implements PriceSource using Zerodha historical candles for
// currency derivatives on the CDS segment. Instruments are mapped to Kite
// instrument tokens through configuration.
type KiteSource struct {
	kc     historyClient
	tokens map[string]int
	now    func() time.Time
}

// NewKiteSource creates a Kite Connect client authenticated with accessToken.
func NewKiteSource(apiKey, accessToken string, tokens map[string]int) *KiteSource {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return newKiteSource(kc, tokens)
}

func newKiteSource(kc historyClient, tokens map[string]int) *KiteSource {
	return &KiteSource{kc: kc, tokens: tokens, now: time.Now}
}

func (k *KiteSource) Name() string { return "kite" }

func (k *KiteSource) FetchSeries(ctx context.Context, instrument, interval, period string) (types.PriceSeries, error) {
	series := types.PriceSeries{Instrument: instrument, Interval: interval, Period: period}

	token, ok := k.tokens[instrument]
	if !ok {
		return series, fmt.Errorf("%w: no kite instrument token for %s", types.ErrDataUnavailable, instrument)
	}
	kiteInterval, ok := kiteIntervals[interval]
	if !ok {
		return series, fmt.Errorf("interval %q not supported by kite", interval)
	}

	to := k.now()
	span, err := PeriodDuration(period, to)
	if err != nil {
		return series, err
	}
	if kiteInterval != "day" && span > maxKiteIntradaySpan {
		span = maxKiteIntradaySpan
	}

	// The Kite client has no context support; honour cancellation before the call.
	if err := ctx.Err(); err != nil {
		return series, err
	}

	candles, err := k.kc.GetHistoricalData(token, kiteInterval, to.Add(-span), to, false, false)
	if err != nil {
		return series, fmt.Errorf("kite historical %s: %w", instrument, err)
	}

	bars := make([]types.PriceBar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, types.PriceBar{
			Time:   c.Date.Time.UTC(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: float64(c.Volume),
		})
	}

	series.Bars = normalizeBars(bars)
	if series.Len() == 0 {
		return series, fmt.Errorf("%w: no data for %s", types.ErrDataUnavailable, instrument)
	}
	return series, nil
}
