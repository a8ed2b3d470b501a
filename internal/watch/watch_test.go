package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
)

func TestQueue_CoalescesRequestsDuringRun(t *testing.T) {
	q := NewQueue()
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	var mu sync.Mutex
	var batches []Batch
	w := NewWorker(q, func(_ context.Context, b Batch) error {
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
		started <- struct{}{}
		<-release
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	q.Request(Request{Reason: "initial"})
	<-started
	assert.True(t, w.Running())

	for _, p := range []string{"a.md", "b.md", "a.md"} {
		q.Request(Request{Reason: "change", Path: p})
	}
	release <- struct{}{}
	<-started
	release <- struct{}{}

	require.Eventually(t, func() bool { return w.Runs() == 2 }, time.Second, 5*time.Millisecond)
	select {
	case <-started:
		t.Fatal("expected exactly one follow-up run")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 2)
	assert.Equal(t, 3, batches[1].Requests)
	assert.Equal(t, []string{"a.md", "b.md"}, batches[1].Paths)
	assert.Equal(t, []string{"change"}, batches[1].Reasons)

	cancel()
	<-done
}

func TestWorker_ContinuesAfterFailure(t *testing.T) {
	q := NewQueue()
	var calls atomic.Int32
	w := NewWorker(q, func(context.Context, Batch) error {
		calls.Add(1)
		return assert.AnError
	}, nil)
	go func() { _ = w.Run(t.Context()) }()

	q.Request(Request{Reason: "one"})
	require.Eventually(t, func() bool { return w.Runs() == 1 }, time.Second, 5*time.Millisecond)
	q.Request(Request{Reason: "two"})
	require.Eventually(t, func() bool { return w.Runs() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), w.Failures())
}

func TestDebouncer_BurstCoalescesToSingleBatch(t *testing.T) {
	out := make(chan Batch, 10)
	d, err := NewDebouncer(DebouncerConfig{QuietWindow: 25 * time.Millisecond, MaxDelay: time.Second}, func(b Batch) { out <- b })
	require.NoError(t, err)
	go func() { _ = d.Run(t.Context()) }()
	<-d.Ready()

	for range 5 {
		d.Trigger(Request{Reason: "change"})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case b := <-out:
		assert.Equal(t, 5, b.Requests)
		assert.Equal(t, "quiet", b.Cause)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for batch")
	}
	select {
	case <-out:
		t.Fatal("expected only one batch for burst")
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelayForcesRelease(t *testing.T) {
	out := make(chan Batch, 10)
	d, err := NewDebouncer(DebouncerConfig{QuietWindow: 200 * time.Millisecond, MaxDelay: 60 * time.Millisecond}, func(b Batch) { out <- b })
	require.NoError(t, err)
	go func() { _ = d.Run(t.Context()) }()
	<-d.Ready()

	stop := time.After(300 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case b := <-out:
			assert.Equal(t, "max_delay", b.Cause)
			return
		case <-ticker.C:
			d.Trigger(Request{Reason: "change"})
		case <-stop:
			t.Fatal("max delay did not force a batch")
		}
	}
}

func TestNewDebouncer_Validation(t *testing.T) {
	_, err := NewDebouncer(DebouncerConfig{MaxDelay: time.Second}, func(Batch) {})
	require.Error(t, err)
	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second}, func(Batch) {})
	require.Error(t, err)
	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second, MaxDelay: time.Second}, nil)
	require.Error(t, err)
}

func TestShouldIgnore(t *testing.T) {
	tests := map[string]bool{
		".hidden.md": true,
		"post.md~":   true,
		".post.swp":  true,
		"post.swp":   true,
		"#post.md#":  true,
		"Thumbs.db":  true,
		"post.md":    false,
		"style.css":  false,
	}
	for name, want := range tests {
		assert.Equal(t, want, shouldIgnore(name), name)
	}
}

func TestWatcher_ReportsChangesAndNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher([]string{root, filepath.Join(root, "missing")}, []string{"*.bak"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	got := make(chan Request, 32)
	go func() { _ = w.Run(t.Context(), func(r Request) { got <- r }) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.bak"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "post.md"), []byte("x"), 0o600))
	waitForPath(t, got, filepath.Join(root, "post.md"))

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o750))
	waitForPath(t, got, sub)
	// Give the watcher a moment to add the new directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.md"), []byte("x"), 0o600))
	waitForPath(t, got, filepath.Join(sub, "nested.md"))
}

func waitForPath(t *testing.T, ch <-chan Request, path string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			require.NotEqual(t, ".bak", filepath.Ext(r.Path), "ignored pattern was reported")
			if r.Path == path {
				assert.Equal(t, "change", r.Reason)
				return
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestScheduler_RequestsPeriodically(t *testing.T) {
	var n atomic.Int32
	s, err := NewScheduler(20*time.Millisecond, func(r Request) {
		if r.Reason == "interval" {
			n.Add(1)
		}
	}, nil)
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool { return n.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewScheduler_RejectsZeroInterval(t *testing.T) {
	_, err := NewScheduler(0, func(Request) {}, nil)
	require.Error(t, err)
}

func TestService_InitialRunAndChange(t *testing.T) {
	root := t.TempDir()
	var mu sync.Mutex
	var batches []Batch
	svc, err := NewService(config.WatchConfig{Debounce: 20 * time.Millisecond, MaxDelay: time.Second},
		[]string{root},
		func(_ context.Context, b Batch) error {
			mu.Lock()
			batches = append(batches, b)
			mu.Unlock()
			return nil
		}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.Worker.Runs() >= 1 }, time.Second, 5*time.Millisecond)
	<-svc.Debouncer.Ready()
	require.NoError(t, os.WriteFile(filepath.Join(root, "post.md"), []byte("x"), 0o600))
	require.Eventually(t, func() bool { return svc.Worker.Runs() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"initial"}, batches[0].Reasons)
	assert.Equal(t, []string{"change"}, batches[1].Reasons)
}
