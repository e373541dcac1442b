package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/types"
)

// ErrQueueFull is returned by AsyncRecorder.Record when the buffer is full.
var ErrQueueFull = errors.New("recorder queue full")

// ErrClosed is returned by AsyncRecorder.Record after Close.
var ErrClosed = errors.New("recorder closed")

// AsyncConfig controls the background writer.
type AsyncConfig struct {
	QueueSize      int
	MaxElapsedTime time.Duration
	InitialBackoff time.Duration
	WriteTimeout   time.Duration
}

// DefaultAsyncConfig returns the writer defaults.
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		QueueSize:      64,
		MaxElapsedTime: 10 * time.Second,
		InitialBackoff: 200 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
	}
}

// AsyncRecorder queues results and writes them on a background goroutine,
// retrying transient failures with exponential backoff. Record never blocks
// the caller. List reads straight from the wrapped store.
type AsyncRecorder struct {
	store Store
	cfg   AsyncConfig
	queue chan types.AnalysisResult

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncRecorder starts the background writer for store.
func NewAsyncRecorder(store Store, cfg AsyncConfig) *AsyncRecorder {
	d := DefaultAsyncConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = d.QueueSize
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = d.MaxElapsedTime
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = d.InitialBackoff
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}

	a := &AsyncRecorder{
		store: store,
		cfg:   cfg,
		queue: make(chan types.AnalysisResult, cfg.QueueSize),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Record enqueues result for writing.
func (a *AsyncRecorder) Record(ctx context.Context, result types.AnalysisResult) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- result:
		return nil
	default:
		logger.Warn(ctx, "Recorder queue full, dropping result", "id", result.ID, "pair", result.Request.Instrument)
		return ErrQueueFull
	}
}

func (a *AsyncRecorder) List(ctx context.Context, instrument string, limit int) ([]types.AnalysisResult, error) {
	return a.store.List(ctx, instrument, limit)
}

// Close stops accepting results, drains the queue and closes the store.
func (a *AsyncRecorder) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	return a.store.Close()
}

func (a *AsyncRecorder) run() {
	defer a.wg.Done()
	for result := range a.queue {
		if err := a.write(result); err != nil {
			logger.ErrorWithErr(context.Background(), "Failed to persist analysis", err,
				"id", result.ID,
				"pair", result.Request.Instrument,
			)
		}
	}
}

func (a *AsyncRecorder) write(result types.AnalysisResult) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.cfg.InitialBackoff
	b.MaxElapsedTime = a.cfg.MaxElapsedTime

	attempt := 0
	operation := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
		defer cancel()
		return a.store.Record(ctx, result)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn(context.Background(), "Persist failed, retrying",
			"id", result.ID,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return nil
}
