package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config configures the store.
type Config struct {
	// MaxEntries bounds the number of entries; the least-recently-used
	// entry is evicted when a Put would exceed it.
	// Default: 1000
	MaxEntries int

	// DefaultTTL applies when Put is called with ttl <= 0.
	// Default: 5 minutes
	DefaultTTL time.Duration

	// Now is the clock. Inject a synthetic clock for tests.
	// Default: time.Now
	Now func() time.Time
}

// entry is the store's internal record for one key.
type entry struct {
	key          string
	value        any
	insertedAt   time.Time
	expiresAt    time.Time
	lastAccessed time.Time
}

// Store is a bounded key/value store with least-recently-used eviction
// and time-to-live expiry.
//
// Expiry is checked lazily on read; no background sweeper runs. An
// expired entry reads as a miss but stays physically present, so
// GetStale can serve it as a degraded fallback until capacity pressure
// or an explicit Invalidate removes it.
type Store struct {
	config Config

	mu      sync.Mutex
	order   *list.List               // access order, most recent at front
	index   map[string]*list.Element // key -> element holding *entry
	hits    int64
	misses  int64
	evicted int64
	expired int64
}

// New creates a new store.
func New(config Config) *Store {
	// Apply defaults
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Store{
		config: config,
		order:  list.New(),
		index:  make(map[string]*list.Element),
	}
}

// Get returns the fresh value for key and marks it recently used.
// Missing or expired entries read as a miss; an expired entry is left in
// place for GetStale.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[key]
	if !ok {
		s.misses++
		return nil, false
	}

	e := el.Value.(*entry)
	now := s.config.Now()
	if now.After(e.expiresAt) {
		s.misses++
		s.expired++
		return nil, false
	}

	e.lastAccessed = now
	s.order.MoveToFront(el)
	s.hits++
	return e.value, true
}

// GetStale returns the value for key ignoring expiry. It never updates
// recency and never resurrects an evicted entry. Used only as a degraded
// fallback; hit/miss counters are untouched.
func (s *Store) GetStale(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry).value, true
}

// Put inserts or replaces the value for key with the given TTL
// (ttl <= 0 uses DefaultTTL). At capacity the least-recently-used entry
// is evicted first, which may silently drop an unrelated key.
func (s *Store) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Now()

	if el, ok := s.index[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.insertedAt = now
		e.expiresAt = now.Add(ttl)
		e.lastAccessed = now
		s.order.MoveToFront(el)
		return
	}

	if s.order.Len() >= s.config.MaxEntries {
		s.evictOldestLocked()
	}

	e := &entry{
		key:          key,
		value:        value,
		insertedAt:   now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
	s.index[key] = s.order.PushFront(e)
}

// Invalidate removes key. Idempotent.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[key]; ok {
		s.order.Remove(el)
		delete(s.index, key)
	}
}

// Clear removes all entries. Counters are preserved.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.index = make(map[string]*list.Element)
}

// Len returns the number of physically present entries, expired included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats is a point-in-time view of the store's counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	Evictions int64
	Expired   int64
}

// Stats returns hit/miss counters and the current size.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Size:      s.order.Len(),
		Evictions: s.evicted,
		Expired:   s.expired,
	}
}

// evictOldestLocked drops the least-recently-used entry. The access-order
// list breaks recency ties by insertion order for free: equal-recency
// entries sit in insertion order at the back. Caller must hold the lock.
func (s *Store) evictOldestLocked() {
	el := s.order.Back()
	if el == nil {
		return
	}
	s.order.Remove(el)
	delete(s.index, el.Value.(*entry).key)
	s.evicted++
}
