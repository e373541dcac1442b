package analysisobs

import (
	"context"

	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/trace"
	"fx-analyzer/internal/types"
)

// observableAnalyzer wraps an Analyzer with observability (logging & tracing)
type observableAnalyzer struct {
	analyzer interfaces.Analyzer
}

// Compile-time interface check
var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

// Wrap wraps an analyzer with observability middleware
func Wrap(analyzer interfaces.Analyzer) interfaces.Analyzer {
	return &observableAnalyzer{analyzer: analyzer}
}

// Analyze runs an analysis with observability
func (oa *observableAnalyzer) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.Analyze")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Analysis requested",
		"pair", req.Instrument,
		"interval", req.Interval,
		"period", req.Period,
	)

	result, err := oa.analyzer.Analyze(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Analysis failed", err,
			"pair", req.Instrument,
			"interval", req.Interval,
		)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Analysis completed",
		"id", result.ID,
		"pair", req.Instrument,
		"signal", result.Final.Direction,
		"confidence", result.Final.Confidence,
		"branch", result.Final.Explanation.Branch,
		"data_points", result.DataPoints,
	)
	return result, nil
}

// AnalyzeNews runs the sentiment path with observability
func (oa *observableAnalyzer) AnalyzeNews(ctx context.Context, keywords []string) (types.SentimentSummary, []string) {
	ctx, span := trace.StartSpan(ctx, "analysis.AnalyzeNews")
	defer span.End()

	summary, headlines := oa.analyzer.AnalyzeNews(ctx, keywords)
	if summary.SourceError != "" {
		logger.WarnSkip(ctx, 1, "News sentiment degraded",
			"keywords", keywords,
			"error", summary.SourceError,
		)
		return summary, headlines
	}

	logger.InfoSkip(ctx, 1, "News sentiment analyzed",
		"keywords", keywords,
		"headlines", len(headlines),
		"score", summary.Score,
	)
	return summary, headlines
}
