package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type scriptedFetch struct {
	mu      sync.Mutex
	batches [][]Item
	errs    []error
	calls   int
}

func (f *scriptedFetch) fetch(ctx context.Context) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.batches) {
		i = len(f.batches) - 1
	}
	return f.batches[i], nil
}

func items(ids ...string) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, Item{ID: id})
	}
	return out
}

func TestFirstLoadSuppressesAlert(t *testing.T) {
	f := &scriptedFetch{batches: [][]Item{
		items("n1", "n2", "n3"),
		items("n1", "n2", "n3", "n4"),
		items("n1", "n2", "n3", "n4"),
	}}
	var alerts [][]Item
	s := newSurface("bell", time.Hour, f.fetch, func(fresh []Item) {
		alerts = append(alerts, fresh)
	})
	ctx := context.Background()

	// First load returns three items and must stay silent.
	s.Poll(ctx)
	if len(alerts) != 0 {
		t.Fatalf("first load fired %d alerts", len(alerts))
	}
	if got := len(s.Snapshot()); got != 3 {
		t.Fatalf("snapshot = %d items, want 3", got)
	}

	// Second poll sees one new item and fires exactly once.
	s.Poll(ctx)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if len(alerts[0]) != 1 || alerts[0][0].ID != "n4" {
		t.Fatalf("alert payload = %+v, want [n4]", alerts[0])
	}

	// Third poll sees nothing new: no repeat alert.
	s.Poll(ctx)
	if len(alerts) != 1 {
		t.Fatalf("unchanged poll re-fired, alerts = %d", len(alerts))
	}
}

func TestFailedPollKeepsSnapshot(t *testing.T) {
	f := &scriptedFetch{
		batches: [][]Item{items("a", "b"), nil, items("a", "b", "c")},
		errs:    []error{nil, errors.New("connection refused"), nil},
	}
	var alerts int
	s := newSurface("list", time.Hour, f.fetch, func([]Item) { alerts++ })
	ctx := context.Background()

	s.Poll(ctx)
	if got := len(s.Snapshot()); got != 2 {
		t.Fatalf("snapshot = %d, want 2", got)
	}

	// The failing poll must not clear the snapshot or fire anything.
	s.Poll(ctx)
	if got := len(s.Snapshot()); got != 2 {
		t.Fatalf("failed poll cleared snapshot, got %d items", got)
	}
	if alerts != 0 {
		t.Fatalf("failed poll fired %d alerts", alerts)
	}
	if s.State() != StateIdle {
		t.Fatalf("state after failure = %v, want idle", s.State())
	}

	// The loop recovers on the next tick.
	s.Poll(ctx)
	if got := len(s.Snapshot()); got != 3 {
		t.Fatalf("snapshot after recovery = %d, want 3", got)
	}
	if alerts != 1 {
		t.Fatalf("alerts after recovery = %d, want 1", alerts)
	}
}

func TestAtMostOneInFlightRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	slow := func(ctx context.Context) ([]Item, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return items("x"), nil
	}
	s := newSurface("slow", time.Hour, slow, nil)
	ctx := context.Background()

	done := make(chan bool)
	go func() { done <- s.Poll(ctx) }()
	<-started

	// A tick arriving mid-fetch is skipped, not queued.
	if s.Poll(ctx) {
		t.Fatal("overlapping poll was not skipped")
	}
	if s.State() != StateFetching {
		t.Fatalf("state = %v, want fetching", s.State())
	}

	close(release)
	if !<-done {
		t.Fatal("original poll reported skipped")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("fetch calls = %d, want 1", n)
	}
}

func TestStopCancelsLoops(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) ([]Item, error) {
		atomic.AddInt32(&calls, 1)
		return items("only"), nil
	}
	p := New()
	p.Add("list", 5*time.Millisecond, fetch, nil)
	p.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) < 3 {
		select {
		case <-deadline:
			t.Fatal("poller never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	p.Stop()
	after := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != after {
		t.Fatalf("poller still running after Stop: %d -> %d", after, got)
	}
}

func TestPokeTriggersImmediatePoll(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) ([]Item, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}
	p := New()
	s := p.Add("list", time.Hour, fetch, nil)
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) < 1 {
		select {
		case <-deadline:
			t.Fatal("initial poll never ran")
		case <-time.After(time.Millisecond):
		}
	}

	s.Poke()
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("poke did not trigger a poll")
		case <-time.After(time.Millisecond):
		}
	}
}
