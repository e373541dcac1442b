package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fx-analyzer/internal/api"
	"fx-analyzer/internal/types"
)

const defaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooSource implements PriceSource using the Yahoo Finance chart API.
type YahooSource struct {
	client  *api.Client
	baseURL string
}

// NewYahooSource creates a Yahoo source. An empty baseURL uses the public API.
func NewYahooSource(client *api.Client, baseURL string) *YahooSource {
	if baseURL == "" {
		baseURL = defaultYahooURL
	}
	if client == nil {
		client = api.NewClient(api.WithService("yahoo"))
	}
	return &YahooSource{client: client, baseURL: baseURL}
}

func (y *YahooSource) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// quoteValue reads vals[i]. ok is false when Yahoo sent null or the column
// is short.
func quoteValue(vals []interface{}, i int) (v float64, ok bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	switch n := vals[i].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// quoteBar builds bar i. A bar without a close (typically the still-forming
// last bar) is missing; null open/high/low fall back to the close.
func quoteBar(ts int64, open, high, low, close, volume []interface{}, i int) (types.PriceBar, bool) {
	c, ok := quoteValue(close, i)
	if !ok {
		return types.PriceBar{}, false
	}
	bar := types.PriceBar{Time: time.Unix(ts, 0).UTC(), Open: c, High: c, Low: c, Close: c}
	if v, ok := quoteValue(open, i); ok {
		bar.Open = v
	}
	if v, ok := quoteValue(high, i); ok {
		bar.High = v
	}
	if v, ok := quoteValue(low, i); ok {
		bar.Low = v
	}
	bar.Volume, _ = quoteValue(volume, i)
	return bar, true
}

// FetchSeries fetches bars for instrument. A response with no usable bars is
// reported as types.ErrDataUnavailable.
func (y *YahooSource) FetchSeries(ctx context.Context, instrument, interval, period string) (types.PriceSeries, error) {
	series := types.PriceSeries{Instrument: instrument, Interval: interval, Period: period}

	u := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		y.baseURL, url.PathEscape(instrument), url.QueryEscape(interval), url.QueryEscape(period))

	resp, err := y.client.GET(ctx, u, api.YahooFinanceHeaders())
	if err != nil {
		if api.StatusCode(err) == http.StatusNotFound {
			return series, fmt.Errorf("%w: yahoo has no instrument %s: %w", types.ErrDataUnavailable, instrument, err)
		}
		return series, fmt.Errorf("%w: yahoo fetch %s: %w", types.ErrDataUnavailable, instrument, err)
	}

	var chart yahooChart
	if err := resp.ParseJSON(&chart); err != nil {
		return series, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return series, fmt.Errorf("%w: yahoo api error: %s", types.ErrDataUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return series, fmt.Errorf("%w: no data for %s", types.ErrDataUnavailable, instrument)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]types.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if bar, ok := quoteBar(ts, quote.Open, quote.High, quote.Low, quote.Close, quote.Volume, i); ok {
			bars = append(bars, bar)
		}
	}

	series.Bars = normalizeBars(bars)
	if series.Len() == 0 {
		return series, fmt.Errorf("%w: no data for %s", types.ErrDataUnavailable, instrument)
	}
	return series, nil
}
