// Package localstate persists the few durable client-local values:
// the auth token and the chat session id.
package localstate

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys.
const (
	KeyAuthToken = "auth_token"

	// KeyChatSession holds the current chat session id.
	KeyChatSession = "chat_session_id_global"

	// KeyLegacyChatSession is only ever read and deleted, by migration.
	KeyLegacyChatSession = "chat_session_id"
)

// ErrEmptyKey is returned when a key is blank.
var ErrEmptyKey = errors.New("localstate: empty key")

// Store is a small string key/value store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes a value, replacing any previous one.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Migrate moves oldKey to newKey: read old, write new, delete old, atomically.
	// If newKey already exists it wins and oldKey is just removed.
	// Returns the value now stored under newKey and whether it exists.
	Migrate(ctx context.Context, oldKey, newKey string) (string, bool, error)
}

// Memory is an in-memory Store.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Migrate implements Store.
func (m *Memory) Migrate(ctx context.Context, oldKey, newKey string) (string, bool, error) {
	if oldKey == "" || newKey == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	oldVal, hasOld := m.data[oldKey]
	newVal, hasNew := m.data[newKey]
	delete(m.data, oldKey)
	if hasNew {
		return newVal, true, nil
	}
	if hasOld {
		m.data[newKey] = oldVal
		return oldVal, true, nil
	}
	return "", false, nil
}

// Keys returns a snapshot of all keys (for tests).
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
