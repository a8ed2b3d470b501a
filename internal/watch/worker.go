package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// RunFunc performs one regeneration.
type RunFunc func(ctx context.Context, b Batch) error

// Worker drains a Queue one batch at a time.
type Worker struct {
	queue  *Queue
	run    RunFunc
	logger *slog.Logger

	running atomic.Bool
	runs    atomic.Int64
	failed  atomic.Int64
}

// NewWorker returns a worker serving q with run.
func NewWorker(q *Queue, run RunFunc, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{queue: q, run: run, logger: logger}
}

// Running reports whether a regeneration is in progress.
func (w *Worker) Running() bool { return w.running.Load() }

// Runs reports how many regenerations have completed.
func (w *Worker) Runs() int64 { return w.runs.Load() }

// Failures reports how many regenerations returned an error.
func (w *Worker) Failures() int64 { return w.failed.Load() }

// Run processes batches until ctx is done. Run errors are logged and do not
// stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		b, ok := w.queue.next(ctx)
		if !ok {
			return nil
		}
		w.running.Store(true)
		start := time.Now()
		err := w.run(ctx, b)
		w.running.Store(false)
		w.runs.Add(1)

		attrs := []any{
			slog.Int("requests", b.Requests),
			slog.Any("reasons", b.Reasons),
			slog.String("cause", b.Cause),
			logfields.DurationMS(float64(time.Since(start).Microseconds()) / 1000),
		}
		if err != nil {
			w.failed.Add(1)
			w.logger.Warn("Regeneration failed", append(attrs, logfields.Error(err))...)
			continue
		}
		w.logger.Debug("Regeneration finished", attrs...)
	}
}
