package interfaces

import (
	"context"

	"fx-analyzer/internal/types"
)

// PriceSource fetches OHLCV history. An empty result is reported as an error
// wrapping types.ErrDataUnavailable.
type PriceSource interface {
	FetchSeries(ctx context.Context, instrument, interval, period string) (types.PriceSeries, error)
}
