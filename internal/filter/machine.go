// Package filter owns the per-item scoring lifecycle and turns stored
// scores into visibility classes under the active strictness policy.
package filter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"FeedScreener/internal/domain"
	"FeedScreener/internal/ports"
	"FeedScreener/internal/scoring"
)

type record struct {
	item    domain.Item
	phase   domain.Phase
	score   float64
	hovered bool
}

// ItemView is the externally visible projection of one tracked item.
type ItemView struct {
	Item       domain.Item
	Phase      domain.Phase
	Score      float64
	Visibility domain.VisibilityClass
	Opacity    float64
}

// MachineDeps wires the state machine's collaborators.
type MachineDeps struct {
	Scorer ports.BatchScorer
	Cache  *scoring.Cache
	Logger *slog.Logger
	// ErrorCooldown gates re-submission after a failed batch.
	ErrorCooldown time.Duration
	Strictness    int
	Context       string
	Enabled       bool
}

// Machine tracks each item's lifecycle and recomputes visibility from
// score and policy without re-invoking the scorer. At most one batch
// is in flight process-wide; concurrent processing requests are
// dropped, not queued. Context and strictness changes arriving while a
// batch is in flight are staged and applied after the batch resolves,
// so the batch always completes against the context it was dispatched
// under.
type Machine struct {
	mu sync.Mutex

	scorer ports.BatchScorer
	cache  *scoring.Cache
	logger *slog.Logger

	records map[string]*record
	order   []string

	scoringContext string
	strictness     int
	policy         domain.FilterPolicy
	enabled        bool

	lastCount     int
	inFlight      bool
	lastFailure   time.Time
	errorCooldown time.Duration

	pendingContext    *string
	pendingStrictness *int

	now func() time.Time
}

// NewMachine builds the state machine for one scoring session.
func NewMachine(deps MachineDeps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		scorer:         deps.Scorer,
		cache:          deps.Cache,
		logger:         logger,
		records:        map[string]*record{},
		scoringContext: deps.Context,
		strictness:     deps.Strictness,
		policy:         domain.PolicyForStrictness(deps.Strictness),
		enabled:        deps.Enabled,
		lastCount:      -1,
		errorCooldown:  deps.ErrorCooldown,
		now:            time.Now,
	}
}

// ItemsChanged ingests the current discovery snapshot. It acts only
// when the item count differs from the last observed count, reporting
// whether anything was ingested. New items start Unscored; vanished
// items are dropped.
func (m *Machine) ItemsChanged(items []domain.Item) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(items) == m.lastCount {
		return false
	}
	m.lastCount = len(items)

	seen := make(map[string]struct{}, len(items))
	m.order = m.order[:0]
	for _, item := range items {
		key := item.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.order = append(m.order, key)
		if rec, ok := m.records[key]; ok {
			rec.item = item
			continue
		}
		m.records[key] = &record{item: item, phase: domain.PhaseUnscored}
	}

	for key := range m.records {
		if _, ok := seen[key]; !ok {
			delete(m.records, key)
		}
	}

	m.logger.Debug("items ingested", "count", len(items))
	return true
}

// Process collects every item awaiting a score for the current context
// and, when the guards allow, moves them to Pending and invokes the
// scorer.
// A request arriving while a batch is in flight, while filtering is
// disabled, or inside the post-error cooldown is dropped.
func (m *Machine) Process(ctx context.Context) error {
	m.mu.Lock()
	if !m.enabled || m.inFlight {
		m.mu.Unlock()
		return nil
	}
	if !m.lastFailure.IsZero() && m.now().Sub(m.lastFailure) < m.errorCooldown {
		m.mu.Unlock()
		return nil
	}

	if err := m.scorer.Ready(); err != nil {
		m.mu.Unlock()
		m.logger.Warn("scoring unavailable", "error", err)
		return err
	}

	// Errored items become eligible again once the cooldown gate above
	// has passed.
	var batch []domain.Item
	var keys []string
	for _, key := range m.order {
		rec := m.records[key]
		if rec != nil && (rec.phase == domain.PhaseUnscored || rec.phase == domain.PhaseErrored) {
			rec.phase = domain.PhasePending
			batch = append(batch, rec.item)
			keys = append(keys, key)
		}
	}
	if len(batch) == 0 {
		m.mu.Unlock()
		return nil
	}

	m.inFlight = true
	dispatchedContext := m.scoringContext
	m.mu.Unlock()

	scores, err := m.scorer.ScoreBatch(ctx, batch, dispatchedContext)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if err != nil {
		m.lastFailure = m.now()
		for _, key := range keys {
			if rec, ok := m.records[key]; ok && rec.phase == domain.PhasePending {
				rec.phase = domain.PhaseErrored
			}
		}
		m.logger.Warn("batch failed", "items", len(batch), "error", err)
	} else {
		m.lastFailure = time.Time{}
		for i, key := range keys {
			if rec, ok := m.records[key]; ok && rec.phase == domain.PhasePending {
				rec.phase = domain.PhaseScored
				rec.score = scores[i]
			}
		}
		m.logger.Info("batch scored", "items", len(batch))
	}

	m.applyStaged()
	return err
}

// SetContext replaces the preference string. The cache is invalidated
// wholesale and every item resets to Unscored. While a batch is in
// flight the change is staged and applied once the batch resolves.
func (m *Machine) SetContext(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text == m.scoringContext {
		return
	}
	if m.inFlight {
		m.pendingContext = &text
		return
	}
	m.applyContext(text)
}

// SetStrictness selects a policy from the strictness table and
// recomputes visibility for every Scored item from its stored score.
// This path never contacts the scorer.
func (m *Machine) SetStrictness(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		m.pendingStrictness = &level
		return
	}
	m.applyStrictness(level)
}

// SetEnabled toggles filtering. Disabling forces every item fully
// visible without state transitions or dispatch; re-enabling
// recomputes visibility from existing Scored state.
func (m *Machine) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// SetHover marks direct user hover on an item. A dimmed item restores
// to full visibility while hovered and reverts on exit.
func (m *Machine) SetHover(key string, hovered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		rec.hovered = hovered
	}
}

// Context returns the active preference string.
func (m *Machine) Context() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoringContext
}

// Policy returns the active threshold pair.
func (m *Machine) Policy() domain.FilterPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// Snapshot projects every tracked item in discovery order.
func (m *Machine) Snapshot() []ItemView {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]ItemView, 0, len(m.order))
	for _, key := range m.order {
		rec, ok := m.records[key]
		if !ok {
			continue
		}
		class := m.visibility(rec)
		views = append(views, ItemView{
			Item:       rec.item,
			Phase:      rec.phase,
			Score:      rec.score,
			Visibility: class,
			Opacity:    class.Opacity(),
		})
	}
	return views
}

// View returns the projection of a single item by key.
func (m *Machine) View(key string) (ItemView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return ItemView{}, false
	}
	class := m.visibility(rec)
	return ItemView{
		Item:       rec.item,
		Phase:      rec.phase,
		Score:      rec.score,
		Visibility: class,
		Opacity:    class.Opacity(),
	}, true
}

// visibility computes the class for one record under the current
// policy. Callers hold m.mu.
func (m *Machine) visibility(rec *record) domain.VisibilityClass {
	if !m.enabled {
		return domain.VisibilityFull
	}
	switch rec.phase {
	case domain.PhasePending:
		// Minimal but never fully hidden: "still evaluating" must stay
		// distinguishable from "evaluated and suppressed".
		return domain.VisibilityHidden
	case domain.PhaseScored:
		class := m.policy.Classify(rec.score)
		if class == domain.VisibilityDimmed && rec.hovered {
			return domain.VisibilityFull
		}
		return class
	case domain.PhaseErrored:
		// Fail open.
		return domain.VisibilityFull
	default:
		return domain.VisibilityFull
	}
}

// applyStaged flushes changes that arrived while a batch was in
// flight. Callers hold m.mu.
func (m *Machine) applyStaged() {
	if m.pendingStrictness != nil {
		m.applyStrictness(*m.pendingStrictness)
		m.pendingStrictness = nil
	}
	if m.pendingContext != nil {
		m.applyContext(*m.pendingContext)
		m.pendingContext = nil
	}
}

func (m *Machine) applyContext(text string) {
	m.scoringContext = text
	m.cache.InvalidateAll()
	for _, rec := range m.records {
		rec.phase = domain.PhaseUnscored
		rec.score = 0
	}
	m.lastFailure = time.Time{}
	m.logger.Info("scoring context changed", "items_reset", len(m.records))
}

func (m *Machine) applyStrictness(level int) {
	m.strictness = level
	m.policy = domain.PolicyForStrictness(level)
	m.logger.Info("strictness changed", "level", level,
		"hide", m.policy.HideThreshold, "dim", m.policy.DimThreshold)
}
