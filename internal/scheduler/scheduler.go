package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fx-analyzer/internal/interfaces"
	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/types"
)

// Scheduler re-analyzes a watchlist on a cron schedule. Results are
// persisted by the analyzer's recorder like any API request.
type Scheduler struct {
	cron      *cron.Cron
	analyzer  interfaces.Analyzer
	watchlist []types.AnalysisRequest
	timeout   time.Duration
	ctx       context.Context

	mu      sync.Mutex
	lastRun time.Time
	last    map[string]types.FinalSignal
}

// cronLogger adapts the package logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithErr(context.Background(), "cron: "+msg, err, keysAndValues...)
}

// NewScheduler creates a scheduler. A run that is still in progress when the
// next tick fires causes that tick to be skipped.
func NewScheduler(ctx context.Context, analyzer interfaces.Analyzer, watchlist []types.AnalysisRequest, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	l := cronLogger{}
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		analyzer:  analyzer,
		watchlist: watchlist,
		timeout:   timeout,
		ctx:       ctx,
		last:      make(map[string]types.FinalSignal),
	}
}

// Register adds the watchlist job with a standard 5-field cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "pairs", len(s.watchlist))
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

// RunNow analyzes every watchlist entry once, in order.
func (s *Scheduler) RunNow() {
	logger.Info(s.ctx, "Running scheduled analysis", "pairs", len(s.watchlist))
	for _, req := range s.watchlist {
		if s.ctx.Err() != nil {
			return
		}
		s.analyze(req)
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()
}

func (s *Scheduler) analyze(req types.AnalysisRequest) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	res, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Scheduled analysis failed", err, "pair", req.Instrument)
		return
	}

	s.mu.Lock()
	prev, seen := s.last[req.Instrument]
	s.last[req.Instrument] = res.Final
	s.mu.Unlock()

	if seen && prev.Direction != res.Final.Direction {
		logger.Info(ctx, "Signal changed",
			"pair", req.Instrument,
			"from", prev.Direction,
			"to", res.Final.Direction,
			"confidence", res.Final.Confidence,
		)
	}
}

// Last returns the most recent scheduled signal for pair.
func (s *Scheduler) Last(pair string) (types.FinalSignal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.last[pair]
	return sig, ok
}

// LastRun returns when the watchlist last completed.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
