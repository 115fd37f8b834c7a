package markets

import (
	"sync"
	"sync/atomic"
)

// cacheState is an immutable snapshot; a new one is published on every insert
type cacheState struct {
	byID  map[string]*Market
	order []string
}

// Cache maps market address to loaded market. It only grows.
// Readers see a consistent snapshot without locking; writers are serialised.
type Cache struct {
	state   atomic.Pointer[cacheState]
	writeMu sync.Mutex
}

// NewCache creates an empty cache
func NewCache() *Cache {
	c := &Cache{}
	c.state.Store(&cacheState{byID: map[string]*Market{}})
	return c
}

// Has reports whether id is cached
func (c *Cache) Has(id string) bool {
	_, ok := c.state.Load().byID[id]
	return ok
}

// Get returns the cached market for id
func (c *Cache) Get(id string) (*Market, bool) {
	m, ok := c.state.Load().byID[id]
	return m, ok
}

// Insert publishes a new snapshot containing id. Inserting an existing id is a no-op.
func (c *Cache) Insert(id string, market *Market) {
	if market == nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	prev := c.state.Load()
	if _, ok := prev.byID[id]; ok {
		return
	}

	next := &cacheState{
		byID:  make(map[string]*Market, len(prev.byID)+1),
		order: make([]string, 0, len(prev.order)+1),
	}
	for k, v := range prev.byID {
		next.byID[k] = v
	}
	next.byID[id] = market
	next.order = append(next.order, prev.order...)
	next.order = append(next.order, id)

	c.state.Store(next)
}

// Snapshot returns the cached markets in insertion order
func (c *Cache) Snapshot() []*Market {
	s := c.state.Load()
	out := make([]*Market, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Addresses returns the cached ids in insertion order
func (c *Cache) Addresses() []string {
	s := c.state.Load()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of cached markets
func (c *Cache) Len() int {
	return len(c.state.Load().order)
}
