// Package tracking provides throttled progress reporting for long-running
// ingestion runs.
package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the minimum delay between intermediate progress logs.
const DefaultInterval = time.Second

// Tracker counts progress for one operation and logs it. Intermediate
// updates are delivered at most once per interval so that high-frequency
// batch loops don't flood the log; terminal updates (Done, Fail) are always
// delivered immediately.
type Tracker struct {
	operation string
	total     int64
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	done    int64
	lastLog time.Time
}

// NewTracker creates a Tracker for the given operation and total item count.
func NewTracker(operation string, total int, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		operation: operation,
		total:     int64(total),
		interval:  DefaultInterval,
		logger:    logger,
	}
}

// WithInterval overrides the minimum delay between intermediate logs.
// Useful in tests.
func (t *Tracker) WithInterval(d time.Duration) *Tracker {
	t.interval = d
	return t
}

// Advance records n completed items and logs progress unless a log was
// emitted within the last interval.
func (t *Tracker) Advance(ctx context.Context, n int) {
	t.mu.Lock()
	t.done += int64(n)
	if time.Since(t.lastLog) < t.interval {
		t.mu.Unlock()
		return
	}
	t.lastLog = time.Now()
	done, percent := t.done, t.completionLocked()
	t.mu.Unlock()

	t.logger.InfoContext(ctx, t.operation,
		slog.Int64("done", done),
		slog.Int64("total", t.total),
		slog.Float64("completion_percent", percent))
}

// Done logs the final progress state immediately.
func (t *Tracker) Done(ctx context.Context) {
	t.mu.Lock()
	done, percent := t.done, t.completionLocked()
	t.mu.Unlock()

	t.logger.InfoContext(ctx, t.operation+" done",
		slog.Int64("done", done),
		slog.Int64("total", t.total),
		slog.Float64("completion_percent", percent))
}

// Fail logs the failure immediately with the progress reached so far.
func (t *Tracker) Fail(ctx context.Context, err error) {
	t.mu.Lock()
	done, percent := t.done, t.completionLocked()
	t.mu.Unlock()

	t.logger.ErrorContext(ctx, t.operation+" failed",
		slog.Int64("done", done),
		slog.Int64("total", t.total),
		slog.Float64("completion_percent", percent),
		slog.String("error", err.Error()))
}

// Completion returns the completed fraction as a percentage.
func (t *Tracker) Completion() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completionLocked()
}

func (t *Tracker) completionLocked() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.done) / float64(t.total) * 100
}
