package summarystore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	summary   string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a capacity-bounded in-process Store. When full, expired
// entries are purged first; otherwise the entry closest to expiry is evicted.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	capacity int
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		entries:  make(map[string]memoryEntry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached summary for key.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return "", false, nil
	}
	return entry.summary, true, nil
}

// Set stores summary under key.
func (m *MemoryStore) Set(_ context.Context, key, summary string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry := memoryEntry{summary: summary}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.capacity {
		m.purgeExpired(now)
		if len(m.entries) >= m.capacity {
			m.evictOne()
		}
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) purgeExpired(now time.Time) {
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}

// evictOne removes the entry that expires soonest. Entries without expiry
// are only chosen when nothing else remains.
func (m *MemoryStore) evictOne() {
	var victim string
	var victimEntry memoryEntry
	found := false

	for key, entry := range m.entries {
		if !found || expiresBefore(entry, key, victimEntry, victim) {
			victim, victimEntry, found = key, entry, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}

// expiresBefore orders entries by expiry, never-expiring last, then by key.
func expiresBefore(a memoryEntry, aKey string, b memoryEntry, bKey string) bool {
	switch {
	case a.expiresAt.Equal(b.expiresAt):
		return aKey < bKey
	case a.expiresAt.IsZero():
		return false
	case b.expiresAt.IsZero():
		return true
	default:
		return a.expiresAt.Before(b.expiresAt)
	}
}

// Len returns the number of live entries.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeExpired(m.now())
	return len(m.entries), nil
}

// Clear removes every entry.
func (m *MemoryStore) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[string]memoryEntry)
	return n, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
