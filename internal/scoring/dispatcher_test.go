package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"FeedScreener/internal/domain"
	"FeedScreener/internal/errlog"
	"FeedScreener/internal/logging"
)

type fakeTransport struct {
	mu      sync.Mutex
	calls   []string
	respond func(endpoint domain.Endpoint) (string, error)
}

func (f *fakeTransport) Complete(_ context.Context, endpoint domain.Endpoint, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, endpoint.Name)
	f.mu.Unlock()
	return f.respond(endpoint)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestDispatcher(t *testing.T, endpoints []domain.Endpoint, transport *fakeTransport) (*Dispatcher, *errlog.Log) {
	t.Helper()
	log := errlog.New()
	d := NewDispatcher(DispatcherDeps{
		Pool:            NewPool(endpoints, 0),
		Cache:           NewCache(),
		Transport:       transport,
		ErrorLog:        log,
		Logger:          logging.New("error"),
		ThrottlePenalty: 10 * time.Second,
	})
	d.sleep = func(context.Context, time.Duration) error { return nil }
	return d, log
}

func batchItems(n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{Title: fmt.Sprintf("item-%d", i), Channel: "ch"}
	}
	return items
}

func TestScoreBatchCacheIdempotence(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "[0.3, 0.8]", nil
	}}
	d, _ := newTestDispatcher(t, testEndpoints("e1"), transport)

	items := batchItems(2)
	first, err := d.ScoreBatch(context.Background(), items, "ctx")
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}

	second, err := d.ScoreBatch(context.Background(), items, "ctx")
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}

	if transport.callCount() != 1 {
		t.Fatalf("second batch issued a network request, calls = %d", transport.callCount())
	}
	if first[0] != second[0] || first[1] != second[1] {
		t.Fatalf("cached result %v differs from original %v", second, first)
	}
}

func TestScoreBatchClamping(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "[1.4, -0.3]", nil
	}}
	d, _ := newTestDispatcher(t, testEndpoints("e1"), transport)

	items := batchItems(2)
	scores, err := d.ScoreBatch(context.Background(), items, "ctx")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if scores[0] != 1.0 {
		t.Fatalf("1.4 clamped to %v, want 1.0", scores[0])
	}
	if scores[1] != 0.0 {
		t.Fatalf("-0.3 clamped to %v, want 0.0", scores[1])
	}

	// The clamped value is what the cache stores.
	if cached, _ := d.cache.Get(items[0], "ctx"); cached != 1.0 {
		t.Fatalf("cache holds %v, want clamped 1.0", cached)
	}
}

func TestScoreBatchMergePreservesOrder(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "[0.9]", nil
	}}
	d, _ := newTestDispatcher(t, testEndpoints("e1"), transport)

	items := batchItems(3)
	d.cache.Put(items[0], "ctx", 0.1)
	d.cache.Put(items[2], "ctx", 0.3)

	scores, err := d.ScoreBatch(context.Background(), items, "ctx")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	want := []float64{0.1, 0.9, 0.3}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores = %v, want %v", scores, want)
		}
	}
}

func TestScoreBatchThrottleFallback(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(endpoint domain.Endpoint) (string, error) {
		if endpoint.Name == "e1" {
			return "", fmt.Errorf("%w: 429", ErrThrottled)
		}
		return "[0.6]", nil
	}}
	d, _ := newTestDispatcher(t, testEndpoints("e1", "e2"), transport)

	scores, err := d.ScoreBatch(context.Background(), batchItems(1), "ctx")
	if err != nil {
		t.Fatalf("fallback batch: %v", err)
	}
	if scores[0] != 0.6 {
		t.Fatalf("score = %v, want 0.6", scores[0])
	}
	if transport.callCount() != 2 {
		t.Fatalf("calls = %d, want primary + fallback", transport.callCount())
	}
	if transport.calls[0] != "e1" || transport.calls[1] != "e2" {
		t.Fatalf("call order = %v", transport.calls)
	}
}

func TestScoreBatchAllEndpointsThrottled(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "", fmt.Errorf("%w: 429", ErrThrottled)
	}}
	d, log := newTestDispatcher(t, testEndpoints("only"), transport)

	_, err := d.ScoreBatch(context.Background(), batchItems(1), "ctx")
	if !errors.Is(err, ErrAllEndpointsThrottled) {
		t.Fatalf("error = %v, want ErrAllEndpointsThrottled", err)
	}
	if transport.callCount() != 1 {
		t.Fatalf("calls = %d, want 1 (no fallback exists)", transport.callCount())
	}

	entries := log.Entries()
	if len(entries) != 1 || entries[0].Kind != KindThrottled {
		t.Fatalf("error log = %+v, want one throttled entry", entries)
	}
}

func TestScoreBatchNetworkFailure(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "", fmt.Errorf("%w: connection refused", ErrNetwork)
	}}
	d, log := newTestDispatcher(t, testEndpoints("e1"), transport)

	_, err := d.ScoreBatch(context.Background(), batchItems(2), "ctx")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
	if entries := log.Entries(); len(entries) != 1 || entries[0].Kind != KindNetwork {
		t.Fatalf("error log = %+v, want one network entry", entries)
	}
	// Batch-fatal: nothing cached.
	if d.cache.Len() != 0 {
		t.Fatalf("failed batch wrote %d cache entries", d.cache.Len())
	}
}

func TestScoreBatchAPIError(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "", &APIError{Status: 503, Body: "overloaded"}
	}}
	d, log := newTestDispatcher(t, testEndpoints("e1"), transport)

	_, err := d.ScoreBatch(context.Background(), batchItems(1), "ctx")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 503 {
		t.Fatalf("error = %v, want APIError{503}", err)
	}
	if entries := log.Entries(); len(entries) != 1 || entries[0].Status != 503 {
		t.Fatalf("error log = %+v, want one api entry with status 503", entries)
	}
}

func TestScoreBatchCountMismatchIsFatal(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "[0.5]", nil
	}}
	d, log := newTestDispatcher(t, testEndpoints("e1"), transport)

	items := batchItems(3)
	_, err := d.ScoreBatch(context.Background(), items, "ctx")
	if !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("error = %v, want ErrCountMismatch", err)
	}
	if d.cache.Len() != 0 {
		t.Fatal("short array must never be partially trusted")
	}
	if entries := log.Entries(); len(entries) != 1 || entries[0].Kind != KindCountMismatch {
		t.Fatalf("error log = %+v, want one count_mismatch entry", entries)
	}
}

func TestScoreBatchMissingCredential(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		t.Fatal("transport must not be reached without a credential")
		return "", nil
	}}
	d, _ := newTestDispatcher(t, []domain.Endpoint{{Name: "e1"}}, transport)

	if err := d.Ready(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Ready = %v, want ErrMissingCredential", err)
	}
	if _, err := d.ScoreBatch(context.Background(), batchItems(1), "ctx"); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("ScoreBatch = %v, want ErrMissingCredential", err)
	}
}

func TestScoreBatchWaitsForCooldown(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{respond: func(domain.Endpoint) (string, error) {
		return "[0.5]", nil
	}}
	log := errlog.New()
	d := NewDispatcher(DispatcherDeps{
		Pool:      NewPool(testEndpoints("e1"), time.Second),
		Cache:     NewCache(),
		Transport: transport,
		ErrorLog:  log,
		Logger:    logging.New("error"),
	})

	var slept []time.Duration
	d.sleep = func(_ context.Context, wait time.Duration) error {
		slept = append(slept, wait)
		return nil
	}
	base := time.Now()
	d.now = func() time.Time { return base }

	if _, err := d.ScoreBatch(context.Background(), batchItems(1), "ctx"); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if len(slept) != 0 {
		t.Fatalf("fresh endpoint should not wait, slept %v", slept)
	}

	// Second dispatch inside the window performs the voluntary wait.
	other := []domain.Item{{Title: "new", Channel: "ch"}}
	if _, err := d.ScoreBatch(context.Background(), other, "ctx"); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("slept %v, want one full-window wait", slept)
	}
}
