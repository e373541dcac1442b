package market

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"fx-analyzer/internal/types"
)

var referencePrices = map[string]float64{
	"EURUSD=X": 1.085,
	"GBPUSD=X": 1.27,
	"USDJPY=X": 151.5,
	"AUDUSD=X": 0.655,
	"USDCAD=X": 1.36,
	"USDCHF=X": 0.905,
	"EURGBP=X": 0.855,
	"EURJPY=X": 164.2,
}

// maxStaticBars bounds generated series so "max" periods stay cheap.
const maxStaticBars = 2000

// StaticSource generates a deterministic random walk per instrument. It is
// used in DRY mode and offline development; the same request always yields
// the same bars.
type StaticSource struct {
	end time.Time
}

// NewStaticSource anchors generated series at end (truncated to the hour).
func NewStaticSource(end time.Time) *StaticSource {
	return &StaticSource{end: end.UTC().Truncate(time.Hour)}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchSeries(ctx context.Context, instrument, interval, period string) (types.PriceSeries, error) {
	series := types.PriceSeries{Instrument: instrument, Interval: interval, Period: period}
	if err := ctx.Err(); err != nil {
		return series, err
	}

	step, err := IntervalDuration(interval)
	if err != nil {
		return series, err
	}
	span, err := PeriodDuration(period, s.end)
	if err != nil {
		return series, err
	}

	n := int(span / step)
	if n > maxStaticBars {
		n = maxStaticBars
	}
	if n < 1 {
		n = 1
	}

	h := fnv.New64a()
	h.Write([]byte(instrument + "|" + interval))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price, ok := referencePrices[instrument]
	if !ok {
		price = 1 + float64(h.Sum64()%1000)/1000
	}
	vol := price * 0.0015 * math.Sqrt(step.Hours()/24+0.01)

	bars := make([]types.PriceBar, n)
	start := s.end.Add(-time.Duration(n-1) * step)
	for i := range bars {
		open := price
		drift := vol * (rng.NormFloat64() + 0.3*math.Sin(float64(i)/24))
		closePx := math.Max(open+drift, price*0.5)
		wick := math.Abs(rng.NormFloat64()) * vol * 0.5
		bars[i] = types.PriceBar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   open,
			High:   math.Max(open, closePx) + wick,
			Low:    math.Min(open, closePx) - wick,
			Close:  closePx,
			Volume: float64(1000 + rng.Intn(9000)),
		}
		price = closePx
	}

	series.Bars = bars
	return series, nil
}
