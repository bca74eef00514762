package scoring

import (
	"errors"
	"fmt"
)

// Sentinel errors for the batch-fatal failure taxonomy. Every one of
// these fails the whole batch; no partial results are ever returned.
var (
	ErrNetwork               = errors.New("scoring transport unreachable")
	ErrThrottled             = errors.New("endpoint throttled")
	ErrAllEndpointsThrottled = errors.New("all endpoints throttled")
	ErrResponseFormat        = errors.New("malformed scoring response")
	ErrCountMismatch         = errors.New("score count mismatch")
	ErrMissingCredential     = errors.New("no endpoint has an api key")
)

// APIError reports a non-success, non-throttling status from the
// judgment service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("scoring api returned status %d", e.Status)
	}
	return fmt.Sprintf("scoring api returned status %d: %s", e.Status, e.Body)
}
