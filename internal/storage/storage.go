// Package storage provides origin-scoped string key/value stores used to
// persist terminal state between restarts.
package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrClosed is returned when a store is used after Close.
var ErrClosed = errors.New("storage: store closed")

// Storage is a string key/value store scoped to a single origin.
type Storage interface {
	// GetItem returns the stored value and whether the key existed.
	GetItem(ctx context.Context, key string) (string, bool, error)
	// SetItem stores value under key, replacing any prior value.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Memory is an in-process Storage used for tests and ephemeral terminals.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: map[string]string{}}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// originOrDefault normalises an origin label for use in keys and bucket names.
func originOrDefault(origin string) string {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "" {
		return "default"
	}
	return trimmed
}
