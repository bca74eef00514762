package scoring

import (
	"sync"
	"time"

	"FeedScreener/internal/domain"
)

// PoolEndpoint pairs a static endpoint identity with its mutable
// dispatch timing. Timing fields are guarded by the owning pool.
type PoolEndpoint struct {
	Endpoint domain.Endpoint

	lastDispatchedAt time.Time
	penalty          time.Duration
}

func (e *PoolEndpoint) availableAt(window time.Duration) time.Time {
	if e.lastDispatchedAt.IsZero() {
		return time.Time{}
	}
	return e.lastDispatchedAt.Add(window + e.penalty)
}

// Pool tracks a fixed set of interchangeable endpoints sharing one
// cooldown window. Selection never blocks; the caller decides whether
// to wait out a returned remaining-cooldown duration.
type Pool struct {
	mu        sync.Mutex
	window    time.Duration
	endpoints []*PoolEndpoint
	next      int
}

// NewPool builds a pool over the configured endpoints.
func NewPool(endpoints []domain.Endpoint, window time.Duration) *Pool {
	p := &Pool{window: window}
	for _, e := range endpoints {
		p.endpoints = append(p.endpoints, &PoolEndpoint{Endpoint: e})
	}
	return p
}

// Size reports the number of configured endpoints.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// HasCredential reports whether at least one endpoint carries an API
// key. Checked as a precondition before any dispatch.
func (p *Pool) HasCredential() bool {
	for _, e := range p.endpoints {
		if e.Endpoint.APIKey != "" {
			return true
		}
	}
	return false
}

// SelectAvailable returns an endpoint whose cooldown has elapsed,
// preferring round-robin order starting after the last returned index.
// If none is available it returns the endpoint with the smallest
// remaining wait, and that wait. Always returns some endpoint.
func (p *Pool) SelectAvailable(now time.Time) (*PoolEndpoint, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	if n == 0 {
		return nil, 0
	}

	best := -1
	var bestWait time.Duration
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		wait := p.endpoints[idx].availableAt(p.window).Sub(now)
		if wait <= 0 {
			p.next = (idx + 1) % n
			return p.endpoints[idx], 0
		}
		if best == -1 || wait < bestWait {
			best = idx
			bestWait = wait
		}
	}

	p.next = (best + 1) % n
	return p.endpoints[best], bestWait
}

// SelectOther picks a fallback endpoint distinct from exclude,
// preferring one whose cooldown has elapsed, otherwise the one with
// the smallest remaining wait. Returns nil when no alternative exists.
func (p *Pool) SelectOther(exclude *PoolEndpoint, now time.Time) (*PoolEndpoint, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		best     *PoolEndpoint
		bestWait time.Duration
	)
	for _, e := range p.endpoints {
		if e == exclude {
			continue
		}
		wait := e.availableAt(p.window).Sub(now)
		if wait <= 0 {
			return e, 0
		}
		if best == nil || wait < bestWait {
			best = e
			bestWait = wait
		}
	}
	return best, bestWait
}

// MarkUsed records the dispatch time and clears any earlier penalty.
func (p *Pool) MarkUsed(e *PoolEndpoint, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.lastDispatchedAt = now
	e.penalty = 0
}

// Penalize extends the endpoint's effective cooldown after a
// throttling response so it cannot be reselected immediately.
func (p *Pool) Penalize(e *PoolEndpoint, extra time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.penalty += extra
}
