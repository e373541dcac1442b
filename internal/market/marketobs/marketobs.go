package marketobs

import (
	"context"
	"time"

	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/trace"
	"fx-analyzer/internal/types"
)

// observableSource wraps a PriceSource with observability (logging & tracing)
type observableSource struct {
	source interfaces.PriceSource
	name   string
}

// Compile-time interface check
var _ interfaces.PriceSource = (*observableSource)(nil)

// Wrap wraps a price source with observability middleware
func Wrap(source interfaces.PriceSource, name string) interfaces.PriceSource {
	return &observableSource{source: source, name: name}
}

// FetchSeries fetches a price series with observability
func (o *observableSource) FetchSeries(ctx context.Context, instrument, interval, period string) (types.PriceSeries, error) {
	ctx, span := trace.StartSpan(ctx, "market.FetchSeries")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching price series",
		"source", o.name,
		"pair", instrument,
		"interval", interval,
		"period", period,
	)

	start := time.Now()
	series, err := o.source.FetchSeries(ctx, instrument, interval, period)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch price series", err,
			"source", o.name,
			"pair", instrument,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return series, err
	}

	logger.InfoSkip(ctx, 1, "Price series fetched",
		"source", o.name,
		"pair", instrument,
		"bars", series.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return series, nil
}
