package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"FeedScreener/internal/domain"
)

type cacheKey struct {
	item    string
	context string
}

// Cache memoizes item+context scores. Keys are unique per pair; the
// cache grows unbounded within a session and is cleared wholesale on
// every context change, never mixing scores from two contexts.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]float64
}

// NewCache builds an empty score cache.
func NewCache() *Cache {
	return &Cache{entries: map[cacheKey]float64{}}
}

// Get returns the memoized score for the item under the given context.
func (c *Cache) Get(item domain.Item, scoringContext string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	score, ok := c.entries[cacheKey{item: item.Key(), context: scoringContext}]
	return score, ok
}

// Put records a score for the item under the given context.
func (c *Cache) Put(item domain.Item, scoringContext string, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{item: item.Key(), context: scoringContext}] = score
}

// Warm seeds the cache from persisted snapshots keyed by item key.
func (c *Cache) Warm(scoringContext string, scores map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for itemKey, score := range scores {
		c.entries[cacheKey{item: itemKey, context: scoringContext}] = score
	}
}

// InvalidateAll drops every entry. Called synchronously on each
// context mutation before any new dispatch is allowed.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[cacheKey]float64{}
}

// Len reports the number of memoized entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ContextHash derives the stable identifier used to key persisted
// score snapshots for one preference string.
func ContextHash(scoringContext string) string {
	sum := sha256.Sum256([]byte(scoringContext))
	return hex.EncodeToString(sum[:])
}
