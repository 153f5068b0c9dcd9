// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in a map. It never fails unless a failure is
// injected with FailWith, which tests use to simulate disabled storage.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
	fail   error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// FailWith makes every subsequent call fail with cause wrapped in
// ErrUnavailable. Passing nil restores normal operation.
func (m *MemoryBackend) FailWith(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = cause
}

// Get implements Backend.
func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return "", false, unavailable("get", key, m.fail)
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return unavailable("set", key, m.fail)
	}
	m.values[key] = value
	return nil
}

// Remove implements Backend.
func (m *MemoryBackend) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return unavailable("remove", key, m.fail)
	}
	delete(m.values, key)
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}
