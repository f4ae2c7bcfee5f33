package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"campuskey/internal/session"
)

// MemoryKV is an in-memory session.KV implementation for tests. Expiry is
// evaluated lazily against the Now function so tests can control time.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
	zsets map[string]map[string]float64

	// Now supplies the current time; defaults to time.Now
	Now func() time.Time
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemoryKV creates an empty in-memory key-value store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		items: make(map[string]memoryItem),
		zsets: make(map[string]map[string]float64),
		Now:   time.Now,
	}
}

var _ session.KV = (*MemoryKV)(nil)

func (m *MemoryKV) expired(it memoryItem) bool {
	return !it.expiresAt.IsZero() && !m.Now().Before(it.expiresAt)
}

// Get returns the value stored at key
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || m.expired(it) {
		delete(m.items, key)
		return "", session.ErrKeyNotFound
	}
	return it.value, nil
}

// Set stores value at key with the given TTL; zero TTL means no expiry
func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it := memoryItem{value: value}
	if ttl > 0 {
		it.expiresAt = m.Now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

// Delete removes the given keys
func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
		delete(m.zsets, key)
	}
	return nil
}

// Exists reports whether key holds a live value
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || m.expired(it) {
		delete(m.items, key)
		return false, nil
	}
	return true, nil
}

// Increment adds one to the integer at key, creating it at zero
func (m *MemoryKV) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || m.expired(it) {
		it = memoryItem{value: "0"}
	}
	n, err := strconv.ParseInt(it.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	it.value = strconv.FormatInt(n, 10)
	m.items[key] = it
	return n, nil
}

// Expire sets the TTL of an existing key
func (m *MemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || m.expired(it) {
		delete(m.items, key)
		return nil
	}
	it.expiresAt = m.Now().Add(ttl)
	m.items[key] = it
	return nil
}

// SortedSetAdd adds member with score to the sorted set at key
func (m *MemoryKV) SortedSetAdd(_ context.Context, key, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	zset, ok := m.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		m.zsets[key] = zset
	}
	zset[member] = score
	return nil
}

// SortedSetRange returns all members with scores in [min, max]
func (m *MemoryKV) SortedSetRange(_ context.Context, key string, min, max float64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var members []string
	for member, score := range m.zsets[key] {
		if score >= min && score <= max {
			members = append(members, member)
		}
	}
	return members, nil
}

// SortedSetRemove removes the given members from the sorted set at key
func (m *MemoryKV) SortedSetRemove(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, member := range members {
		delete(m.zsets[key], member)
	}
	return nil
}

// SortedSetRemoveByScoreRange removes all members with scores in [min, max]
func (m *MemoryKV) SortedSetRemoveByScoreRange(_ context.Context, key string, min, max float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for member, score := range m.zsets[key] {
		if score >= min && score <= max {
			delete(m.zsets[key], member)
		}
	}
	return nil
}

// SortedSetCardinality returns the number of members in the sorted set
func (m *MemoryKV) SortedSetCardinality(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.zsets[key])), nil
}
