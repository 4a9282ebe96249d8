// Package poller implements the delta-detection fallback for clients without
// a live WebSocket. Each surface (conversation list, active messages,
// notification bell, notification count) runs its own fixed-interval loop;
// the interval is the staleness bound the push channel is held to when it
// degrades.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
)

// Default intervals per surface.
const (
	ConversationListInterval  = 5 * time.Second
	ActiveMessagesInterval    = 2 * time.Second
	MessageBellInterval       = 15 * time.Second
	NotificationCountInterval = 30 * time.Second

	// FetchTimeout bounds a single poll; a timeout is an ordinary failed
	// poll, not a distinct error.
	FetchTimeout = 10 * time.Second
)

// State of a polling surface. The cycle is Idle -> Fetching -> Reconciling
// -> Idle; a tick that arrives while the surface is not Idle is skipped, so
// at most one request is in flight per surface.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateReconciling
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateReconciling:
		return "reconciling"
	default:
		return "idle"
	}
}

// Item is one element of a polled collection, identified for diffing.
type Item struct {
	ID      string
	Payload any
}

// FetchFunc retrieves the current server-side collection for a surface.
type FetchFunc func(ctx context.Context) ([]Item, error)

// AlertFunc fires once per reconciliation that detected new items, with only
// the items not present in the previous snapshot.
type AlertFunc func(newItems []Item)

// Surface is one independently scheduled polling loop. The last-seen id set
// is owned by the surface and replaced atomically after each reconciliation.
type Surface struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	alert    AlertFunc

	mu       sync.Mutex
	state    State
	seen     map[string]struct{}
	snapshot []Item
	loaded   bool

	poke chan struct{}
}

func newSurface(name string, interval time.Duration, fetch FetchFunc, alert AlertFunc) *Surface {
	return &Surface{
		name:     name,
		interval: interval,
		fetch:    fetch,
		alert:    alert,
		seen:     make(map[string]struct{}),
		poke:     make(chan struct{}, 1),
	}
}

// State returns the surface's current phase.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the last successfully fetched collection.
func (s *Surface) Snapshot() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Loaded reports whether the first successful fetch has completed.
func (s *Surface) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Poke requests an immediate poll, coalesced if one is already pending.
func (s *Surface) Poke() {
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

// Poll runs one fetch-reconcile cycle. Returns false if the surface was
// already mid-cycle and the call was skipped.
func (s *Surface) Poll(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return false
	}
	s.state = StateFetching
	s.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	items, err := s.fetch(fetchCtx)
	cancel()
	if err != nil {
		// Failed polls keep the snapshot and retry on the next tick.
		if ctx.Err() == nil {
			logger.Errorf("poll %s: %v", s.name, err)
		}
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return true
	}

	s.mu.Lock()
	s.state = StateReconciling
	var fresh []Item
	next := make(map[string]struct{}, len(items))
	for _, it := range items {
		next[it.ID] = struct{}{}
		if _, ok := s.seen[it.ID]; !ok {
			fresh = append(fresh, it)
		}
	}
	firstLoad := !s.loaded
	s.seen = next
	s.snapshot = items
	s.loaded = true
	s.state = StateIdle
	s.mu.Unlock()

	// The very first load seeds the id set without firing alerts.
	if !firstLoad && len(fresh) > 0 && s.alert != nil {
		s.alert(fresh)
	}
	return true
}

func (s *Surface) run(ctx context.Context) {
	s.Poll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		case <-s.poke:
			s.Poll(ctx)
		}
	}
}

// Poller owns a set of surfaces and their goroutines.
type Poller struct {
	mu       sync.Mutex
	surfaces []*Surface
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

func New() *Poller {
	return &Poller{}
}

// Add registers a surface. Must be called before Start.
func (p *Poller) Add(name string, interval time.Duration, fetch FetchFunc, alert AlertFunc) *Surface {
	s := newSurface(name, interval, fetch, alert)
	p.mu.Lock()
	p.surfaces = append(p.surfaces, s)
	p.mu.Unlock()
	return s
}

// Start launches one goroutine per surface. Each does an immediate first
// poll, then follows its interval.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	for _, s := range p.surfaces {
		p.wg.Add(1)
		go func(s *Surface) {
			defer p.wg.Done()
			s.run(ctx)
		}(s)
	}
}

// Stop cancels all loops and waits for them to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Wait blocks until every surface goroutine has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}
