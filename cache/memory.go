package cache

import (
	"context"
	"sync"
	"time"

	bridge "github.com/goliatone/go-auth-bridge"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory is an in process store with per entry expiry. Expired entries are
// dropped on read and on Purge.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

// Get implements bridge.Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !m.now().Before(entry.expires) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && current.expires.Equal(entry.expires) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

// Put implements bridge.Cache. A non positive ttl stores nothing.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{
		value:   append([]byte(nil), value...),
		expires: m.now().Add(ttl),
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (m *Memory) Purge() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expires) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ bridge.Cache = (*Memory)(nil)
