package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when Redis is not configured and in tests.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return "", ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.items, key)
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.items[key] = e
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *MemoryCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if e, ok := m.items[key]; ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	m.items[key] = memoryEntry{value: strconv.FormatInt(n, 10)}
	return n, nil
}
