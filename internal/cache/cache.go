// Package cache provides the on-device key-value mirror of profile fields.
// Caches are best-effort: failures are logged and reads fall back to absent.
package cache

import (
	"maps"
	"sync"
)

// Cache is a string key-value store.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Memory is a process-local Cache.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Cache = (*Memory)(nil)

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *Memory) Remove(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// Snapshot returns a copy of all entries.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}
