package interfaces

import "fx-analyzer/internal/types"

type ChartRenderer interface {
	Render(series types.PriceSeries, frame types.IndicatorFrame) ([]byte, error)
}
