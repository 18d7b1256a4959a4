// Package eventcache implements the EventCache (§4.F): a bounded, ordered
// store of recently flushed events keyed by eventId, letting Reader Nodes
// catch up incrementally with "events since eventId" instead of re-loading
// the full persistent snapshot on every refresh tick. Grounded on the
// bounded-ring pattern used throughout the pack for recent-item caches
// (e.g. fd9d37b4 gravitational-teleport lib/cache); implemented here over a
// plain slice plus an index map since capacity is small enough that O(n)
// eviction is not a concern.
package eventcache

import (
	"sync"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
)

// Cache is a bounded ordered event store. The zero value is not usable;
// construct with New.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	order    []string // eventIds in insertion order, oldest first
	byID     map[string]events.Event
}

// New constructs a Cache retaining at most capacity events.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		byID:     make(map[string]events.Event),
	}
}

// CacheEvents appends batch to the cache in order, evicting the oldest
// events over capacity. An event with an empty EventID is never a valid
// cache entry - it means the caller handed this cache an unstamped event,
// a Writer Node bug upstream - so it is dropped rather than deduped: two
// such events sharing the empty key would otherwise collapse into a single
// cache slot and silently corrupt every Reader Node's view.
func (c *Cache) CacheEvents(batch []events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range batch {
		if e.Header.EventID == "" {
			continue
		}
		if _, exists := c.byID[e.Header.EventID]; exists {
			continue
		}
		c.order = append(c.order, e.Header.EventID)
		c.byID[e.Header.EventID] = e
	}
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.byID, oldest)
	}
	return nil
}

// GetAllEventsSince returns every cached event strictly after priorEventID,
// in order. Semantics per §4.F:
//   - If the cache is empty, returns CacheEmpty (a benign startup
//     condition the caller is expected to swallow).
//   - If priorEventID is the empty string or the zero UUID - a fresh
//     Reader Node that has never applied an event - every cached event is
//     "since" it, in cache order; this is the only case where an unknown
//     id is not an EventNotCached miss.
//   - If priorEventID is not present in the cache (fallen out of the
//     retention window, or never existed), returns EventNotCached so the
//     caller falls back to a full persistent Load.
//   - If priorEventID is the newest cached event, returns an empty,
//     non-error slice: the caller is already caught up.
func (c *Cache) GetAllEventsSince(priorEventID string) ([]events.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.order) == 0 {
		return nil, accesserrors.CacheEmpty()
	}

	if priorEventID == "" || priorEventID == events.ZeroEventID {
		out := make([]events.Event, 0, len(c.order))
		for _, id := range c.order {
			out = append(out, c.byID[id])
		}
		return out, nil
	}

	idx := -1
	for i, id := range c.order {
		if id == priorEventID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, accesserrors.EventNotCached(priorEventID)
	}

	rest := c.order[idx+1:]
	if len(rest) == 0 {
		return nil, nil
	}
	out := make([]events.Event, 0, len(rest))
	for _, id := range rest {
		out = append(out, c.byID[id])
	}
	return out, nil
}

// Latest returns the most recently cached event's ID, and false if the
// cache is empty.
func (c *Cache) Latest() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.order) == 0 {
		return "", false
	}
	return c.order[len(c.order)-1], true
}

// Len reports the number of events currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
