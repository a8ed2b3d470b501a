package watch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
)

// Service wires a watcher, optional scheduler, debouncer, queue and worker.
type Service struct {
	Queue     *Queue
	Worker    *Worker
	Debouncer *Debouncer
	Watcher   *Watcher
	Scheduler *Scheduler

	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewService watches roots and runs run for every released batch.
func NewService(cfg config.WatchConfig, roots []string, run RunFunc, recorder metrics.Recorder, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	s := &Service{Queue: NewQueue(), recorder: recorder, logger: logger}
	s.Worker = NewWorker(s.Queue, run, logger)

	d, err := NewDebouncer(DebouncerConfig{QuietWindow: cfg.Debounce, MaxDelay: cfg.MaxDelay}, s.Queue.Enqueue)
	if err != nil {
		return nil, err
	}
	s.Debouncer = d

	w, err := NewWatcher(roots, cfg.Ignore, logger)
	if err != nil {
		return nil, err
	}
	s.Watcher = w

	if cfg.Interval > 0 {
		sch, err := NewScheduler(cfg.Interval, s.Request, logger)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		s.Scheduler = sch
	}
	return s, nil
}

// Request queues a regeneration without debouncing.
func (s *Service) Request(r Request) {
	s.recorder.IncRegenerationRequest(r.Reason)
	s.Queue.Request(r)
}

func (s *Service) trigger(r Request) {
	s.recorder.IncRegenerationRequest(r.Reason)
	s.Debouncer.Trigger(r)
}

// Run performs an initial regeneration and then serves changes until ctx
// is done.
func (s *Service) Run(ctx context.Context) error {
	defer func() { _ = s.Watcher.Close() }()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.Worker.Run(ctx) })
	eg.Go(func() error { return s.Debouncer.Run(ctx) })
	eg.Go(func() error { return s.Watcher.Run(ctx, s.trigger) })
	if s.Scheduler != nil {
		s.Scheduler.Start()
		defer func() {
			if err := s.Scheduler.Stop(); err != nil {
				s.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	s.Request(Request{Reason: "initial"})
	s.logger.Info("Watching for changes")
	return eg.Wait()
}
