package recorder

import (
	"context"

	"fx-analyzer/internal/types"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(_ context.Context, _ types.AnalysisResult) error { return nil }
func (n *NoopRecorder) List(_ context.Context, _ string, _ int) ([]types.AnalysisResult, error) {
	return []types.AnalysisResult{}, nil
}
func (n *NoopRecorder) Close() error { return nil }
