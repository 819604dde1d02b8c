package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunPrunesHistoryOlderThanRetention(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

	pruner := &fakePruner{
		entries: []time.Time{
			now.Add(-91 * 24 * time.Hour),
			now.Add(-89 * 24 * time.Hour),
			now.Add(-time.Hour),
		},
	}

	job := NewSwipeHistoryJob(pruner, 90*24*time.Hour, time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(pruner.entries) != 2 {
		t.Fatalf("expected only the stale entry to be pruned, left %d", len(pruner.entries))
	}
	if !pruner.cutoff.Equal(now.Add(-90 * 24 * time.Hour)) {
		t.Fatalf("unexpected cutoff: %s", pruner.cutoff)
	}
}

func TestRunWrapsPrunerError(t *testing.T) {
	boom := errors.New("boom")
	job := NewSwipeHistoryJob(&fakePruner{err: boom}, 0, 0, nil)

	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped pruner error, got %v", err)
	}
}

func TestLoopStopsWithContext(t *testing.T) {
	pruner := &fakePruner{}
	job := NewSwipeHistoryJob(pruner, time.Hour, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Loop(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for pruner.runs() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
	if pruner.runs() < 2 {
		t.Fatalf("expected an immediate run and at least one tick, got %d", pruner.runs())
	}
}

type fakePruner struct {
	mu      sync.Mutex
	entries []time.Time
	cutoff  time.Time
	calls   int
	err     error
}

func (f *fakePruner) PruneSwipeHistory(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.cutoff = cutoff

	kept := f.entries[:0]
	var deleted int64
	for _, at := range f.entries {
		if at.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, at)
	}
	f.entries = kept
	return deleted, nil
}

func (f *fakePruner) runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
