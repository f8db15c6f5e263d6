package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// AlertGroupResult is the unit the cache publishes per partner: the partner's
// prioritized alerts plus their grouped view, as of one analysis pass.
type AlertGroupResult struct {
	PartnerID  string
	Alerts     []model.PrioritizedAlert
	Groups     []model.AlertGroup
	ComputedAt time.Time
}

// Cache holds per-partner analysis results. All state lives in the instance;
// construct one per engine rather than sharing process-global maps.
//
// Begin/End maintain an informational in-progress marker set. Markers confer
// no exclusivity: two goroutines may both compute the same partner and the
// last Set wins. A full result is always published atomically under the lock,
// so readers never observe a partial entry.
type Cache struct {
	mu         sync.RWMutex
	results    map[string]*AlertGroupResult
	inProgress map[string]struct{}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		results:    make(map[string]*AlertGroupResult),
		inProgress: make(map[string]struct{}),
	}
}

// Get returns the cached result for the partner, if any.
func (c *Cache) Get(key string) (*AlertGroupResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[key]
	return r, ok
}

// Set publishes a result for the partner, replacing any previous entry.
func (c *Cache) Set(key string, r *AlertGroupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = r
}

// Invalidate drops the entries for the given partners.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.results, k)
	}
}

// InvalidateAll drops every cached result.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]*AlertGroupResult)
}

// Begin marks the partner as being recomputed and reports whether it was not
// already marked. The marker is informational only.
func (c *Cache) Begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inProgress[key]; busy {
		return false
	}
	c.inProgress[key] = struct{}{}
	return true
}

// End clears the partner's in-progress marker.
func (c *Cache) End(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inProgress, key)
}

// Keys returns the cached partner keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.results))
	for k := range c.results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
