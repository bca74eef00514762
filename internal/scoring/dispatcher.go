package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"FeedScreener/internal/domain"
	"FeedScreener/internal/errlog"
	"FeedScreener/internal/ports"
)

// Error kinds recorded in the diagnostic log.
const (
	KindNetwork        = "network"
	KindThrottled      = "throttled"
	KindAPI            = "api"
	KindResponseFormat = "response_format"
	KindCountMismatch  = "count_mismatch"
)

// DispatcherDeps wires the collaborators of one scoring session.
type DispatcherDeps struct {
	Pool      *Pool
	Cache     *Cache
	Transport ports.ScoreTransport
	Store     ports.ScoreStore
	ErrorLog  *errlog.Log
	Logger    *slog.Logger
	// ThrottlePenalty extends a throttled endpoint's cooldown before
	// the single fallback retry.
	ThrottlePenalty time.Duration
}

// Dispatcher performs one all-or-nothing batch scoring attempt:
// cache partition, endpoint selection with a voluntary cooldown wait,
// transmit, single fallback-endpoint retry on throttling, decode,
// clamp, cache write. Callers serialize ScoreBatch; the process-wide
// in-flight guard lives in the filter state machine.
type Dispatcher struct {
	pool      *Pool
	cache     *Cache
	transport ports.ScoreTransport
	store     ports.ScoreStore
	log       *errlog.Log
	logger    *slog.Logger
	penalty   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ ports.BatchScorer = (*Dispatcher)(nil)

// NewDispatcher constructs the orchestration component.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		pool:      deps.Pool,
		cache:     deps.Cache,
		transport: deps.Transport,
		store:     deps.Store,
		log:       deps.ErrorLog,
		logger:    logger,
		penalty:   deps.ThrottlePenalty,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Ready reports the credential precondition. A missing API key blocks
// all processing before any dispatch is attempted.
func (d *Dispatcher) Ready() error {
	if d.pool == nil || d.pool.Size() == 0 {
		return fmt.Errorf("no scoring endpoints configured: %w", ErrMissingCredential)
	}
	if !d.pool.HasCredential() {
		return ErrMissingCredential
	}
	return nil
}

// ScoreBatch returns one score in [0,1] per item, in the caller's
// order, merging cached values with newly fetched ones. Any failure is
// batch-fatal: no partial results, nothing written to the cache.
func (d *Dispatcher) ScoreBatch(ctx context.Context, items []domain.Item, scoringContext string) ([]float64, error) {
	scores := make([]float64, len(items))
	var uncached []int
	for i, item := range items {
		if s, ok := d.cache.Get(item, scoringContext); ok {
			scores[i] = s
			continue
		}
		uncached = append(uncached, i)
	}

	// Fast path: a fully cached batch never touches the network.
	if len(uncached) == 0 {
		return scores, nil
	}

	if err := d.Ready(); err != nil {
		return nil, err
	}

	batch := make([]domain.Item, len(uncached))
	for j, idx := range uncached {
		batch[j] = items[idx]
	}
	prompt := EncodePrompt(batch, scoringContext)

	text, err := d.send(ctx, prompt, len(batch))
	if err != nil {
		return nil, err
	}

	raw, err := DecodeScores(text, len(batch))
	if err != nil {
		kind := KindResponseFormat
		if errors.Is(err, ErrCountMismatch) {
			kind = KindCountMismatch
		}
		d.record(ctx, kind, 0, err.Error())
		return nil, err
	}

	contextHash := ContextHash(scoringContext)
	for j, idx := range uncached {
		score := clamp(raw[j])
		scores[idx] = score
		d.cache.Put(items[idx], scoringContext, score)
		if d.store != nil {
			if err := d.store.SaveScore(ctx, contextHash, items[idx].Key(), score); err != nil {
				d.logger.Warn("persist score failed", "item", items[idx].Title, "error", err)
			}
		}
	}

	return scores, nil
}

// send performs the endpoint selection, voluntary cooldown wait,
// transmit, and the single fallback retry on throttling.
func (d *Dispatcher) send(ctx context.Context, prompt string, batchSize int) (string, error) {
	endpoint, wait := d.pool.SelectAvailable(d.now())
	if wait > 0 {
		d.logger.Debug("waiting for endpoint cooldown", "endpoint", endpoint.Endpoint.Name, "wait", wait)
		if err := d.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("cooldown wait: %w", err)
		}
	}

	d.logger.Debug("dispatching batch", "endpoint", endpoint.Endpoint.Name, "items", batchSize)
	d.pool.MarkUsed(endpoint, d.now())
	text, err := d.transport.Complete(ctx, endpoint.Endpoint, prompt)
	if err == nil {
		return text, nil
	}

	if !errors.Is(err, ErrThrottled) {
		return "", d.classifySendError(ctx, endpoint, err)
	}

	d.pool.Penalize(endpoint, d.penalty)
	fallback, wait := d.pool.SelectOther(endpoint, d.now())
	if fallback == nil {
		wrapped := fmt.Errorf("endpoint %s throttled with no alternative: %w",
			endpoint.Endpoint.Name, ErrAllEndpointsThrottled)
		d.record(ctx, KindThrottled, 0, wrapped.Error())
		return "", wrapped
	}

	if wait > 0 {
		if err := d.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("fallback cooldown wait: %w", err)
		}
	}

	d.logger.Debug("retrying batch on fallback endpoint", "endpoint", fallback.Endpoint.Name)
	d.pool.MarkUsed(fallback, d.now())
	text, err = d.transport.Complete(ctx, fallback.Endpoint, prompt)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, ErrThrottled) {
		d.pool.Penalize(fallback, d.penalty)
	}
	return "", d.classifySendError(ctx, fallback, err)
}

func (d *Dispatcher) classifySendError(ctx context.Context, endpoint *PoolEndpoint, err error) error {
	name := endpoint.Endpoint.Name
	switch {
	case errors.Is(err, ErrNetwork):
		d.record(ctx, KindNetwork, 0, fmt.Sprintf("endpoint %s: %v", name, err))
	case errors.Is(err, ErrThrottled):
		d.record(ctx, KindThrottled, 0, fmt.Sprintf("endpoint %s: %v", name, err))
	case errors.Is(err, ErrResponseFormat):
		d.record(ctx, KindResponseFormat, 0, fmt.Sprintf("endpoint %s: %v", name, err))
	default:
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			d.record(ctx, KindAPI, apiErr.Status, fmt.Sprintf("endpoint %s: %v", name, err))
		} else {
			d.record(ctx, KindNetwork, 0, fmt.Sprintf("endpoint %s: %v", name, err))
		}
	}
	return err
}

func (d *Dispatcher) record(ctx context.Context, kind string, status int, detail string) {
	d.logger.Warn("batch scoring failed", "kind", kind, "status", status, "detail", detail)
	if d.log == nil {
		return
	}
	entry := d.log.Append(kind, status, detail)
	if d.store != nil {
		if err := d.store.SaveErrorEntry(ctx, entry); err != nil {
			d.logger.Warn("persist error entry failed", "error", err)
		}
	}
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
