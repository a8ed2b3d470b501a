// Package watch turns file-system changes and timer ticks into serialized
// regeneration runs.
//
// Requests flow Watcher/Scheduler -> Debouncer -> Queue -> Worker. The
// Worker runs one regeneration at a time; everything requested while a run
// is in progress is coalesced into exactly one follow-up run.
package watch

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Request asks for a regeneration.
type Request struct {
	Reason string
	Path   string
	At     time.Time
}

// Batch is the coalesced set of requests one run serves.
type Batch struct {
	Requests int
	Reasons  []string
	Paths    []string
	First    time.Time
	Last     time.Time
	// Cause records what released the batch (quiet, max_delay, direct).
	Cause string
}

func (b *Batch) add(r Request) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	if b.Requests == 0 || r.At.Before(b.First) {
		b.First = r.At
	}
	if r.At.After(b.Last) {
		b.Last = r.At
	}
	b.Requests++
	b.Reasons = appendUnique(b.Reasons, r.Reason)
	b.Paths = appendUnique(b.Paths, r.Path)
}

func (b *Batch) merge(o Batch) {
	if o.Requests == 0 {
		return
	}
	if b.Requests == 0 || o.First.Before(b.First) {
		b.First = o.First
	}
	if o.Last.After(b.Last) {
		b.Last = o.Last
	}
	b.Requests += o.Requests
	for _, r := range o.Reasons {
		b.Reasons = appendUnique(b.Reasons, r)
	}
	for _, p := range o.Paths {
		b.Paths = appendUnique(b.Paths, p)
	}
	if o.Cause != "" {
		b.Cause = o.Cause
	}
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	i := sort.SearchStrings(list, s)
	if i < len(list) && list[i] == s {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

// Queue holds at most one pending batch. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending Batch
	signal  chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Enqueue merges b into the pending batch.
func (q *Queue) Enqueue(b Batch) {
	q.mu.Lock()
	q.pending.merge(b)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Request enqueues a single request released immediately.
func (q *Queue) Request(r Request) {
	var b Batch
	b.add(r)
	b.Cause = "direct"
	q.Enqueue(b)
}

// Pending reports whether a batch is waiting.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Requests > 0
}

// next blocks until a batch is pending or ctx is done.
func (q *Queue) next(ctx context.Context) (Batch, bool) {
	for {
		select {
		case <-ctx.Done():
			return Batch{}, false
		case <-q.signal:
		}
		q.mu.Lock()
		b := q.pending
		q.pending = Batch{}
		q.mu.Unlock()
		if b.Requests > 0 {
			return b, true
		}
	}
}
