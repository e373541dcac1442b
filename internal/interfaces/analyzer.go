package interfaces

import (
	"context"

	"fx-analyzer/internal/types"
)

// Analyzer runs the full technical + sentiment pipeline for one request.
// On failure it returns the error together with a safe HOLD result.
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error)

	// AnalyzeNews runs only the sentiment path. Failures are reported in
	// the summary's SourceError.
	AnalyzeNews(ctx context.Context, keywords []string) (types.SentimentSummary, []string)
}
