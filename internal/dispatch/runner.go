// Package dispatch runs fire-and-forget background work for the call engine.
// Side effects (CRM writes, community searches, deferred hangups) must never
// block a turn's spoken response; failures are logged and affect only later
// turns' context.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/casualjim/strix/pkg/slogx"
)

const defaultTaskTimeout = 30 * time.Second

// Runner executes tasks on a bounded pool of goroutines. When the pool is
// saturated the task runs on a fresh goroutine instead of queueing, so Go
// never blocks the caller.
type Runner struct {
	sem chan struct{}
	wg  sync.WaitGroup

	taskTimeout time.Duration
}

// New creates a runner with the given pool size.
func New(size int) *Runner {
	if size < 1 {
		size = 1
	}
	return &Runner{
		sem:         make(chan struct{}, size),
		taskTimeout: defaultTaskTimeout,
	}
}

// Go schedules fn and returns immediately. The task gets its own deadline;
// an error return is logged under the task name and otherwise dropped.
func (r *Runner) Go(name string, fn func(context.Context) error) {
	r.wg.Add(1)

	run := func(throttled bool) {
		defer r.wg.Done()
		if throttled {
			defer func() { <-r.sem }()
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.taskTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Error("background task failed", slog.String("task", name), slogx.Error(err))
		}
	}

	select {
	case r.sem <- struct{}{}:
		go run(true)
	default:
		// Pool saturated; spawn rather than block the turn.
		go run(false)
	}
}

// Wait blocks until in-flight tasks finish or the timeout expires.
func (r *Runner) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
