package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// LRU is a thread-safe in-memory least-recently-used store with an optional
// per-entry TTL.
type LRU struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key     string
	value   domain.Table
	expires time.Time
	prev    *entry
	next    *entry
}

// NewLRU creates a store holding at most maxEntries tables. A zero ttl keeps
// entries until they are evicted or invalidated. A nil clock uses real time.
func NewLRU(maxEntries int, ttl time.Duration, clock clockwork.Clock) *LRU {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LRU{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Get returns the table stored under key. Expired entries are dropped.
func (c *LRU) Get(_ context.Context, key string) (domain.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Table{}, false
	}
	if !e.expires.IsZero() && !c.clock.Now().Before(e.expires) {
		c.delete(e)
		return domain.Table{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Set stores a table, evicting the least recently used entry when full.
func (c *LRU) Set(_ context.Context, key string, value domain.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.ttl > 0 {
		expires = c.clock.Now().Add(c.ttl)
	}

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.delete(c.tail)
	}
}

// InvalidatePrefix drops every entry whose key starts with prefix and
// returns how many were dropped.
func (c *LRU) InvalidatePrefix(_ context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.delete(e)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *LRU) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *LRU) delete(e *entry) {
	if e == nil {
		return
	}
	delete(c.entries, e.key)
	c.unlink(e)
}
