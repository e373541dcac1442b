package interfaces

import (
	"context"

	"fx-analyzer/internal/types"
)

type Recorder interface {
	Record(ctx context.Context, result types.AnalysisResult) error
	Close() error
}

// History lists recorded results, newest first. An empty instrument matches all.
type History interface {
	List(ctx context.Context, instrument string, limit int) ([]types.AnalysisResult, error)
}
