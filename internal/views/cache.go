// Package views caches per-user read models (account lists, dashboards)
// until a mutation marks them stale.
package views

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Key names one cached view.
type Key string

const (
	KeyAccounts     Key = "accounts"
	KeyTransactions Key = "transactions"
	KeyCategories   Key = "categories"
	KeyDashboard    Key = "dashboard"
)

var (
	invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "views_invalidations_total",
		Help: "Views marked stale, by key",
	}, []string{"key"})

	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "views_lookups_total",
		Help: "View cache lookups, by key and result",
	}, []string{"key", "result"})
)

// Invalidator is notified after every successful mutation. It never fails.
type Invalidator interface {
	MarkStale(owner uuid.UUID, keys ...Key)
}

// Cacher is an Invalidator that also serves cached views.
type Cacher interface {
	Invalidator
	Get(owner uuid.UUID, key Key) (any, bool)
	Put(owner uuid.UUID, key Key, value any)
	// Generation changes every time the view is marked stale.
	Generation(owner uuid.UUID, key Key) uint64
	// PutIfCurrent stores value only if the view has not been marked stale
	// since gen was read.
	PutIfCurrent(owner uuid.UUID, key Key, value any, gen uint64) bool
}

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is an in-process Invalidator. Entries also expire after ttl so a
// write made by another process is eventually picked up. A zero ttl keeps
// entries until marked stale.
type Cache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]map[Key]entry
	gens    map[uuid.UUID]map[Key]uint64
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[uuid.UUID]map[Key]entry),
		gens:    make(map[uuid.UUID]map[Key]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for owner's view. Callers must not mutate it.
func (c *Cache) Get(owner uuid.UUID, key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[owner][key]
	c.mu.RUnlock()

	if ok && c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		ok = false
	}
	if ok {
		lookupsTotal.WithLabelValues(string(key), "hit").Inc()
		return e.value, true
	}
	lookupsTotal.WithLabelValues(string(key), "miss").Inc()
	return nil, false
}

func (c *Cache) Put(owner uuid.UUID, key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(owner, key, value)
}

func (c *Cache) Generation(owner uuid.UUID, key Key) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[owner][key]
}

func (c *Cache) PutIfCurrent(owner uuid.UUID, key Key, value any, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[owner][key] != gen {
		return false
	}
	c.put(owner, key, value)
	return true
}

func (c *Cache) put(owner uuid.UUID, key Key, value any) {
	views, ok := c.entries[owner]
	if !ok {
		views = make(map[Key]entry)
		c.entries[owner] = views
	}
	views[key] = entry{value: value, storedAt: c.now()}
}

// MarkStale drops the named views for owner.
func (c *Cache) MarkStale(owner uuid.UUID, keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gens, ok := c.gens[owner]
	if !ok {
		gens = make(map[Key]uint64)
		c.gens[owner] = gens
	}
	views := c.entries[owner]
	for _, k := range keys {
		delete(views, k)
		gens[k]++
		invalidationsTotal.WithLabelValues(string(k)).Inc()
	}
	if len(views) == 0 {
		delete(c.entries, owner)
	}
}

// Cached returns owner's view from c, or builds it with load and stores it.
// Concurrent misses may each call load. A result is not stored when the
// view was marked stale while load ran.
func Cached[T any](c Cacher, owner uuid.UUID, key Key, load func() (T, error)) (T, error) {
	if v, ok := c.Get(owner, key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	gen := c.Generation(owner, key)
	t, err := load()
	if err != nil {
		return t, err
	}
	c.PutIfCurrent(owner, key, t, gen)
	return t, nil
}

var _ Cacher = (*Cache)(nil)
