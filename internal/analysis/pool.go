package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is the number of concurrent blocking calls allowed.
const DefaultPoolSize = 4

// Pool bounds concurrent blocking work (fetches, classifier batches) across
// all requests. A slot is held until the work really returns, so calls that
// ignore their context and outlive their caller still count against the pool.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool with size slots. Non-positive sizes use DefaultPoolSize.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Do runs fn while holding a slot. It returns ctx.Err() if no slot frees up
// before ctx is done, or as soon as ctx is done while fn is still running.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, p, 0, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Run acquires a slot and calls fn under timeout (no extra deadline when
// timeout is not positive). The wait for a slot counts against the timeout.
// Run returns at the deadline even if fn ignores its context; the slot is
// released only when fn returns.
func Run[T any](ctx context.Context, p *Pool, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		return out.v, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
