package domain

import "time"

// Item is a single entry of the discovered feed. Title and Channel
// together form the natural key; the rest is display-agnostic payload
// forwarded to the judgment service.
type Item struct {
	Title    string
	Channel  string
	Duration time.Duration
	Metadata string
}

// Key returns the stable identity used for cache and state lookups.
func (i Item) Key() string {
	return i.Title + "\x1f" + i.Channel
}

// Phase enumerates an item's scoring lifecycle.
type Phase int

const (
	PhaseUnscored Phase = iota
	PhasePending
	PhaseScored
	PhaseErrored
)

// String renders the phase for logs and diagnostics.
func (p Phase) String() string {
	switch p {
	case PhaseUnscored:
		return "unscored"
	case PhasePending:
		return "pending"
	case PhaseScored:
		return "scored"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrorEntry is one diagnostic record produced by a failed scoring
// attempt. Status is zero unless the failure carried an HTTP status.
type ErrorEntry struct {
	ID        string
	CreatedAt time.Time
	Kind      string
	Status    int
	Detail    string
}

// Endpoint identifies one interchangeable backend instance of the
// judgment service. The set is static for the process lifetime.
type Endpoint struct {
	Name   string
	URL    string
	Model  string
	APIKey string
}
