package watch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DebouncerConfig tunes the debounce policy.
type DebouncerConfig struct {
	// QuietWindow is how long requests must stop before a batch is released.
	QuietWindow time.Duration
	// MaxDelay caps how long a steady stream of requests can postpone a batch.
	MaxDelay time.Duration
}

// Debouncer coalesces bursts of requests into single batches:
//   - quiet window debounce
//   - max delay (cannot postpone indefinitely)
type Debouncer struct {
	cfg  DebouncerConfig
	in   chan Request
	emit func(Batch)

	readyOnce sync.Once
	ready     chan struct{}
}

// NewDebouncer returns a debouncer releasing batches to emit.
func NewDebouncer(cfg DebouncerConfig, emit func(Batch)) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, errors.New("quiet window must be > 0")
	}
	if cfg.MaxDelay <= 0 {
		return nil, errors.New("max delay must be > 0")
	}
	if emit == nil {
		return nil, errors.New("emit function is required")
	}
	return &Debouncer{cfg: cfg, in: make(chan Request, 64), emit: emit, ready: make(chan struct{})}, nil
}

// Ready is closed once Run is consuming requests.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Trigger submits a request. It never blocks; when the buffer is full a
// burst is already pending and the request is folded into it.
func (d *Debouncer) Trigger(r Request) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	select {
	case d.in <- r:
	default:
	}
}

// Run debounces until ctx is done. A pending batch is dropped on shutdown.
func (d *Debouncer) Run(ctx context.Context) error {
	d.readyOnce.Do(func() { close(d.ready) })

	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	var (
		quietC  <-chan time.Time
		maxC    <-chan time.Time
		pending Batch
	)

	release := func(cause string) {
		pending.Cause = cause
		d.emit(pending)
		pending = Batch{}
		stopTimer(quietTimer)
		stopTimer(maxTimer)
		quietC, maxC = nil, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-d.in:
			pending.add(r)
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if maxC == nil {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}
		case <-quietC:
			release("quiet")
		case <-maxC:
			release("max_delay")
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
