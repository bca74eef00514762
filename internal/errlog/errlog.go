// Package errlog keeps a small in-memory ring of scoring failures for
// operator diagnostics. It is written by the dispatcher and read
// externally; no core decision consults it.
package errlog

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"FeedScreener/internal/domain"
)

// Capacity bounds the ring; the oldest entry is dropped first.
const Capacity = 10

const maxDetailLen = 500

// Log is an append-only bounded diagnostic buffer.
type Log struct {
	mu      sync.Mutex
	entries []domain.ErrorEntry
	entropy *rand.Rand
}

// New builds an empty log.
func New() *Log {
	return &Log{entropy: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Append records one failure and returns the stored entry. Detail is
// truncated to 500 characters.
func (l *Log) Append(kind string, status int, detail string) domain.ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}

	now := time.Now().UTC()
	entry := domain.ErrorEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), l.entropy).String(),
		CreatedAt: now,
		Kind:      kind,
		Status:    status,
		Detail:    detail,
	}

	l.entries = append(l.entries, entry)
	if len(l.entries) > Capacity {
		l.entries = l.entries[len(l.entries)-Capacity:]
	}

	return entry
}

// Entries returns a copy of the ring, most recent last.
func (l *Log) Entries() []domain.ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ErrorEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
