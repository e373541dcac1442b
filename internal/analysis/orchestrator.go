package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fx-analyzer/internal/indicators"
	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/market"
	"fx-analyzer/internal/sentiment"
	"fx-analyzer/internal/signal"
	"fx-analyzer/internal/types"
)

// Config tunes the orchestrator.
type Config struct {
	PriceTimeout    time.Duration
	NewsTimeout     time.Duration
	ClassifyTimeout time.Duration
	BatchSize       int
	MaxHeadlines    int                 // headlines returned with a result
	Keywords        map[string][]string // per-pair news keywords; missing pairs use the news defaults
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		PriceTimeout:    15 * time.Second,
		NewsTimeout:     10 * time.Second,
		ClassifyTimeout: 20 * time.Second,
		BatchSize:       sentiment.DefaultBatchSize,
		MaxHeadlines:    5,
	}
}

// Deps are the collaborators of an Orchestrator. News, Chart and Recorder
// may be nil.
type Deps struct {
	Prices        interfaces.PriceSource
	News          interfaces.DocumentSource
	NewClassifier func() (interfaces.Classifier, error)
	Chart         interfaces.ChartRenderer
	Recorder      interfaces.Recorder
	Indicators    *indicators.Engine
	Technical     *signal.TechnicalGenerator
	Combiner      *signal.Combiner
	Pool          *Pool
}

// Orchestrator runs the price and sentiment paths concurrently and fuses
// their outputs into a single recommendation.
type Orchestrator struct {
	deps Deps
	cfg  Config

	classifierOnce sync.Once
	classifier     interfaces.Classifier
	classifierErr  error

	now   func() time.Time
	newID func() string
}

var _ interfaces.Analyzer = (*Orchestrator)(nil)

// New creates an orchestrator. Missing engines fall back to their defaults.
func New(deps Deps, cfg Config) *Orchestrator {
	d := DefaultConfig()
	if cfg.PriceTimeout <= 0 {
		cfg.PriceTimeout = d.PriceTimeout
	}
	if cfg.NewsTimeout <= 0 {
		cfg.NewsTimeout = d.NewsTimeout
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = d.ClassifyTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.MaxHeadlines <= 0 {
		cfg.MaxHeadlines = d.MaxHeadlines
	}

	if deps.Indicators == nil {
		deps.Indicators = indicators.NewEngine(indicators.DefaultParams())
	}
	if deps.Technical == nil {
		deps.Technical = signal.NewTechnicalGenerator(nil)
	}
	if deps.Combiner == nil {
		deps.Combiner = signal.NewCombiner(signal.DefaultCombinerConfig())
	}
	if deps.Pool == nil {
		deps.Pool = NewPool(DefaultPoolSize)
	}
	if deps.NewClassifier == nil {
		deps.NewClassifier = func() (interfaces.Classifier, error) {
			return sentiment.NewLexiconClassifier(), nil
		}
	}

	return &Orchestrator{
		deps:  deps,
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// priceOutcome is everything the price path produces.
type priceOutcome struct {
	series    types.PriceSeries
	frame     types.IndicatorFrame
	technical types.TechnicalSignal
}

// Analyze runs one full analysis. On failure the returned result is a safe
// HOLD with confidence 0 and Error set, alongside the error.
func (o *Orchestrator) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	timer := logger.StartOperation(ctx, "analysis.Analyze",
		"pair", req.Instrument,
		"interval", req.Interval,
		"period", req.Period,
	)
	ctx = timer.GetContext()

	result := &types.AnalysisResult{
		ID:        o.newID(),
		Request:   req,
		Timestamp: o.now().UTC(),
		Headlines: []string{},
	}

	if err := market.ValidateRequest(req); err != nil {
		err = fmt.Errorf("%w: %v", types.ErrInvalidRequest, err)
		o.fail(result, err)
		timer.EndWithError(err)
		return result, err
	}

	var (
		price     priceOutcome
		sent      types.SentimentSummary
		headlines []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		price, err = o.pricePath(gctx, req)
		return err
	})
	g.Go(func() error {
		sent, headlines = o.sentimentPath(gctx, req.Instrument, o.cfg.Keywords[req.Instrument])
		return nil
	})

	if err := g.Wait(); err != nil {
		if !errors.Is(err, types.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %s: %v", types.ErrDataUnavailable, req.Instrument, err)
		}
		o.fail(result, err)
		// failed runs stay in history, rejected requests do not
		o.record(ctx, *result)
		timer.EndWithError(err)
		return result, err
	}

	final := o.deps.Combiner.Combine(price.technical, sent)

	result.Final = final
	result.Technical = price.technical
	result.Sentiment = sent
	result.DataPoints = price.series.Len()
	if len(headlines) > o.cfg.MaxHeadlines {
		headlines = headlines[:o.cfg.MaxHeadlines]
	}
	result.Headlines = headlines

	if o.deps.Chart != nil {
		img, err := o.deps.Chart.Render(price.series, price.frame)
		if err != nil {
			logger.Debug(ctx, "Chart rendering skipped", "pair", req.Instrument, "error", err)
		} else {
			result.Chart = img
		}
	}

	logger.Decision(ctx, req.Instrument, string(final.Direction), final.Confidence, final.Explanation.Branch,
		"technical", string(price.technical.Direction),
		"technical_confidence", price.technical.Confidence,
		"sentiment", sent.Score,
		"documents", sent.Total,
	)

	o.record(ctx, *result)
	timer.End("signal", string(final.Direction), "confidence", final.Confidence)
	return result, nil
}

// AnalyzeNews runs only the sentiment path.
func (o *Orchestrator) AnalyzeNews(ctx context.Context, keywords []string) (types.SentimentSummary, []string) {
	return o.sentimentPath(ctx, "", keywords)
}

func (o *Orchestrator) fail(result *types.AnalysisResult, err error) {
	result.Final = types.FinalSignal{
		Direction:  types.Hold,
		Confidence: 0,
		Explanation: types.Explanation{
			Technical: result.Technical,
			Sentiment: result.Sentiment,
			Branch:    "error",
		},
	}
	result.Error = err.Error()
}

func (o *Orchestrator) pricePath(ctx context.Context, req types.AnalysisRequest) (priceOutcome, error) {
	var out priceOutcome

	series, err := Run(ctx, o.deps.Pool, o.cfg.PriceTimeout, func(ctx context.Context) (types.PriceSeries, error) {
		return o.deps.Prices.FetchSeries(ctx, req.Instrument, req.Interval, req.Period)
	})
	if err != nil {
		return out, err
	}
	out.series = series
	if out.series.Len() == 0 {
		return out, fmt.Errorf("%w: no bars for %s", types.ErrDataUnavailable, req.Instrument)
	}

	out.frame = o.deps.Indicators.Compute(out.series)
	out.technical = o.deps.Technical.Generate(out.frame)
	logger.Debug(ctx, "Technical signal generated",
		"pair", req.Instrument,
		"bars", out.series.Len(),
		"signal", out.technical.Direction,
		"confidence", out.technical.Confidence,
		"reasons", out.technical.Reasons,
	)
	return out, nil
}

// sentimentPath never fails: collaborator errors become an empty summary
// with SourceError set.
func (o *Orchestrator) sentimentPath(ctx context.Context, pair string, keywords []string) (types.SentimentSummary, []string) {
	if o.deps.News == nil {
		return types.SentimentSummary{}, []string{}
	}

	docs, err := Run(ctx, o.deps.Pool, o.cfg.NewsTimeout, func(ctx context.Context) ([]string, error) {
		return o.deps.News.FetchDocuments(ctx, keywords)
	})
	if err != nil {
		return o.degraded(ctx, pair, "news", err), []string{}
	}
	if len(docs) == 0 {
		return types.SentimentSummary{}, []string{}
	}

	summary, err := o.classify(ctx, docs)
	if err != nil {
		return o.degraded(ctx, pair, "classifier", err), docs
	}
	return summary, docs
}

func (o *Orchestrator) degraded(ctx context.Context, pair, source string, err error) types.SentimentSummary {
	if !errors.Is(err, types.ErrCollaboratorUnavailable) {
		err = fmt.Errorf("%w: %s: %v", types.ErrCollaboratorUnavailable, source, err)
	}
	logger.Degraded(ctx, pair, source, err)
	return types.SentimentSummary{SourceError: err.Error()}
}

// classify runs batches concurrently, each holding a pool slot, and merges
// the per-batch tallies in input order.
func (o *Orchestrator) classify(ctx context.Context, docs []string) (types.SentimentSummary, error) {
	clf, err := o.getClassifier()
	if err != nil {
		return types.SentimentSummary{}, fmt.Errorf("init classifier: %w", err)
	}

	batches := sentiment.Batches(docs, o.cfg.BatchSize)
	tallies := make([]sentiment.Tally, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			labels, err := Run(gctx, o.deps.Pool, o.cfg.ClassifyTimeout, func(ctx context.Context) ([]types.SentimentDocument, error) {
				return clf.Classify(ctx, batch)
			})
			if err != nil {
				return err
			}
			if len(labels) != len(batch) {
				return fmt.Errorf("classifier returned %d labels for %d texts", len(labels), len(batch))
			}
			tallies[i] = sentiment.TallyOf(labels)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.SentimentSummary{}, err
	}

	var total sentiment.Tally
	for _, t := range tallies {
		total = total.Merge(t)
	}
	return total.Summary(), nil
}

func (o *Orchestrator) getClassifier() (interfaces.Classifier, error) {
	o.classifierOnce.Do(func() {
		o.classifier, o.classifierErr = o.deps.NewClassifier()
	})
	return o.classifier, o.classifierErr
}

func (o *Orchestrator) record(ctx context.Context, result types.AnalysisResult) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.Record(context.WithoutCancel(ctx), result); err != nil {
		logger.Warn(ctx, "Failed to queue analysis for persistence", "id", result.ID, "error", err)
	}
}
