package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fx-analyzer/internal/analysis"
	"fx-analyzer/internal/analysis/analysisobs"
	"fx-analyzer/internal/api"
	"fx-analyzer/internal/chart"
	"fx-analyzer/internal/indicators"
	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/market"
	"fx-analyzer/internal/market/marketobs"
	"fx-analyzer/internal/news"
	"fx-analyzer/internal/recorder"
	"fx-analyzer/internal/scheduler"
	"fx-analyzer/internal/sentiment"
	"fx-analyzer/internal/server"
	fxsignal "fx-analyzer/internal/signal"
	"fx-analyzer/internal/store"
	"fx-analyzer/internal/trace"
	"fx-analyzer/internal/types"
)

const version = "1.0.0"

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(trace.ConfigFromEnv(version)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads the configuration, falling back to defaults when the
// file does not exist
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "Config file not found - using defaults", "path", path)
		return store.Default(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializePriceSource returns the configured price source with observability
func initializePriceSource(ctx context.Context, cfg *store.Config) interfaces.PriceSource {
	if cfg.Mode == "DRY_RUN" && cfg.DataSource != "STATIC" {
		logger.Warn(ctx, "Running in DRY_RUN mode - live price source still used", "data_source", cfg.DataSource)
	}

	switch cfg.DataSource {
	case "KITE":
		logger.Info(ctx, "Using Zerodha Kite historical candles", "instruments", len(cfg.Kite.Tokens))
		src := market.NewKiteSource(os.Getenv(cfg.Kite.APIKeyEnv), os.Getenv(cfg.Kite.AccessTokenEnv), cfg.Kite.Tokens)
		return marketobs.Wrap(src, src.Name())
	case "STATIC":
		logger.Info(ctx, "Using STATIC generated price data for testing")
		src := market.NewStaticSource(time.Now())
		return marketobs.Wrap(src, src.Name())
	default:
		client := api.NewClient(
			api.WithService("yahoo"),
			api.WithTimeout(30*time.Second),
			api.WithRateLimit(cfg.Yahoo.RateLimitRPS, 1),
			api.WithLogging(logger.IsDebugEnabled()),
		)
		src := market.NewYahooSource(client, cfg.Yahoo.BaseURL)
		logger.Info(ctx, "Using Yahoo Finance price data")
		return marketobs.Wrap(src, src.Name())
	}
}

// initializeNewsCache returns the headline cache, or nil when disabled
func initializeNewsCache(ctx context.Context, cfg *store.Config) news.Cache {
	ttl := time.Duration(cfg.News.CacheMinutes) * time.Minute

	switch cfg.News.Cache {
	case "REDIS":
		rc := news.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.News.RedisAddr}), ttl)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn(ctx, "Redis unavailable - falling back to in-memory headline cache", "addr", cfg.News.RedisAddr, "error", err)
			rc.Close()
			return news.NewMemoryCache(ttl)
		}
		logger.Info(ctx, "Using Redis headline cache", "addr", cfg.News.RedisAddr)
		return rc
	case "MEMORY":
		return news.NewMemoryCache(ttl)
	default:
		return nil
	}
}

// initializeNews returns the headline service, or nil when news is disabled
func initializeNews(ctx context.Context, cfg *store.Config, cache news.Cache) interfaces.DocumentSource {
	if !cfg.News.Enabled {
		logger.Warn(ctx, "News disabled - sentiment will be neutral")
		return nil
	}

	kinds := cfg.News.Sources
	if len(kinds) == 0 {
		kinds = []string{"NEWSAPI", "SCRAPE"}
	}

	var sources []news.HeadlineSource
	for _, kind := range kinds {
		switch kind {
		case "NEWSAPI":
			key := os.Getenv(cfg.News.NewsAPIKeyEnv)
			if key == "" {
				logger.Warn(ctx, "News API key not set - skipping NewsAPI source", "env", cfg.News.NewsAPIKeyEnv)
				continue
			}
			client := api.NewClient(
				api.WithService("newsapi"),
				api.WithTimeout(15*time.Second),
				api.WithLogging(logger.IsDebugEnabled()),
			)
			sources = append(sources, news.NewNewsAPISource(client, key, cfg.News.NewsAPIURL,
				time.Duration(cfg.News.LookbackHours)*time.Hour))
		case "SCRAPE":
			sources = append(sources, news.NewScraper(time.Duration(cfg.News.ScrapeTimeout)*time.Second))
		}
	}
	if len(sources) == 0 {
		logger.Warn(ctx, "No usable news sources - sentiment will be neutral")
		return nil
	}

	svcCfg := news.DefaultServiceConfig()
	svcCfg.MaxKeywords = cfg.News.MaxKeywords
	svcCfg.ArticlesPerKeyword = cfg.News.ArticlesPerKeyword
	svcCfg.MaxHeadlines = cfg.News.MaxHeadlines
	svcCfg.CacheDuration = time.Duration(cfg.News.CacheMinutes) * time.Minute
	svcCfg.DefaultKeywords = cfg.News.DefaultKeywords

	return news.NewService(svcCfg, cache, sources...)
}

// classifierFactory defers classifier construction to the first sentiment request
func classifierFactory(cfg *store.Config) func() (interfaces.Classifier, error) {
	return func() (interfaces.Classifier, error) {
		return sentiment.NewClassifier(sentiment.Config{
			Provider:  cfg.Classifier.Provider,
			Model:     cfg.Classifier.Model,
			Endpoint:  cfg.Classifier.Endpoint,
			RateLimit: cfg.Classifier.RateLimitRPS,
			Timeout:   time.Duration(cfg.Classifier.Timeout) * time.Second,
		})
	}
}

// initializeRecorder opens the result store; writes go through the async writer
func initializeRecorder(ctx context.Context, cfg *store.Config) (recorder.Store, error) {
	st, err := recorder.Open(cfg.Recorder.DBPath)
	if err != nil {
		return nil, err
	}
	if cfg.Recorder.DBPath == "" {
		logger.Warn(ctx, "No recorder.db_path configured - results will not be persisted")
		return st, nil
	}

	acfg := recorder.DefaultAsyncConfig()
	acfg.QueueSize = cfg.Recorder.QueueSize
	return recorder.NewAsyncRecorder(st, acfg), nil
}

// initializeAnalyzer wires the pipeline and wraps it with observability
func initializeAnalyzer(ctx context.Context, cfg *store.Config, rec interfaces.Recorder) interfaces.Analyzer {
	var renderer interfaces.ChartRenderer
	if cfg.Chart.Enabled {
		renderer = chart.NewRenderer(cfg.Chart.Width, cfg.Chart.Height)
	}

	combiner := fxsignal.DefaultCombinerConfig()
	combiner.TechnicalWeight = cfg.Combiner.TechnicalWeight
	combiner.SentimentWeight = cfg.Combiner.SentimentWeight

	orch := analysis.New(analysis.Deps{
		Prices:        initializePriceSource(ctx, cfg),
		News:          initializeNews(ctx, cfg, initializeNewsCache(ctx, cfg)),
		NewClassifier: classifierFactory(cfg),
		Chart:         renderer,
		Recorder:      rec,
		Indicators: indicators.NewEngine(indicators.Params{
			RSIPeriod:  cfg.Indicators.RSIPeriod,
			MACDFast:   cfg.Indicators.MACDFast,
			MACDSlow:   cfg.Indicators.MACDSlow,
			MACDSignal: cfg.Indicators.MACDSignal,
			MAFast:     cfg.Indicators.MAFast,
			MASlow:     cfg.Indicators.MASlow,
			BBPeriod:   cfg.Indicators.BBPeriod,
			BBStdDev:   cfg.Indicators.BBStdDev,
		}),
		Technical: fxsignal.NewTechnicalGenerator(nil),
		Combiner:  fxsignal.NewCombiner(combiner),
		Pool:      analysis.NewPool(cfg.PoolSize),
	}, analysis.Config{
		PriceTimeout:    cfg.PriceTimeout(),
		NewsTimeout:     cfg.NewsTimeout(),
		ClassifyTimeout: cfg.ClassifyTimeout(),
		BatchSize:       cfg.Classifier.BatchSize,
		Keywords:        cfg.News.PairKeywords,
	})

	logger.Info(ctx, "Analyzer initialized",
		"data_source", cfg.DataSource,
		"classifier", cfg.Classifier.Provider,
		"pool_size", cfg.PoolSize,
		"chart", cfg.Chart.Enabled,
	)
	return analysisobs.Wrap(orch)
}

// initializeServer builds the HTTP server
func initializeServer(cfg *store.Config, analyzer interfaces.Analyzer, history interfaces.History) *server.Server {
	return server.NewServer(analyzer, history, server.Options{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Version:        version,
	})
}

// initializeScheduler registers the watchlist job, or returns nil when disabled
func initializeScheduler(ctx context.Context, cfg *store.Config, analyzer interfaces.Analyzer) (*scheduler.Scheduler, error) {
	if !cfg.Schedule.Enabled {
		return nil, nil
	}

	watchlist := make([]types.AnalysisRequest, 0, len(cfg.Schedule.Watchlist))
	for _, w := range cfg.Schedule.Watchlist {
		watchlist = append(watchlist, types.AnalysisRequest{Instrument: w.Pair, Interval: w.Interval, Period: w.Period})
	}

	s := scheduler.NewScheduler(ctx, analyzer, watchlist, time.Duration(cfg.Server.RequestTimeout)*time.Second)
	if err := s.Register(cfg.Schedule.Cron); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Scheduled analysis enabled", "cron", cfg.Schedule.Cron, "pairs", len(watchlist))
	return s, nil
}
