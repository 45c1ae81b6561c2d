package storage

import (
	"context"
	"sync"
)

// Memory is an in-process KV. With a positive quota it rejects writes
// that would make the total size of keys and values exceed it, the way
// a browser store does.
type Memory struct {
	mu    sync.Mutex
	data  map[string]string
	quota int
	used  int
}

func NewMemory(quotaBytes int) *Memory {
	return &Memory{data: map[string]string{}, quota: quotaBytes}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		used -= len(key) + len(old)
	}
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.used = used
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.data, key)
	}
	return nil
}
