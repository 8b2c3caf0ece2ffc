package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is an in-process Cache with TTL expiry and LRU eviction, used when
// no Redis is configured. The clock is injectable so tests can advance time.
type Memory struct {
	maxEntries int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// NewMemory creates an in-memory cache holding at most maxEntries values.
// Pass nil for the real clock.
func NewMemory(maxEntries int, clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if m.clock.Now().After(e.expiresAt) {
		m.removeEntry(e)
		return nil, ErrMiss
	}
	m.moveToFront(e)
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires := m.clock.Now().Add(ttl)
	if e, ok := m.entries[key]; ok {
		e.value = value
		e.expiresAt = expires
		m.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: value, expiresAt: expires}
	m.entries[key] = e
	m.addToFront(e)

	if len(m.entries) > m.maxEntries {
		m.evictTail()
	}
	return nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*entry)
	m.head, m.tail = nil, nil
	return nil
}

func (m *Memory) moveToFront(e *entry) {
	if e == m.head {
		return
	}
	m.unlink(e)
	m.addToFront(e)
}

func (m *Memory) addToFront(e *entry) {
	e.next = m.head
	e.prev = nil
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *Memory) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
}

func (m *Memory) removeEntry(e *entry) {
	delete(m.entries, e.key)
	m.unlink(e)
}

func (m *Memory) evictTail() {
	if m.tail != nil {
		m.removeEntry(m.tail)
	}
}
