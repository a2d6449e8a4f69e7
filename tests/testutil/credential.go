package testutil

import (
	"sync"
	"time"

	"github.com/tmorehouse/dashterm/internal/credential"
)

// MemoryCredentials is an in-memory credential.Store for tests, honoring
// per-record expirations the way the keyring implementation does.
type MemoryCredentials struct {
	mu      sync.Mutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	value     string
	expiresAt time.Time
}

// NewMemoryCredentials creates an empty in-memory credential store.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{records: make(map[string]memoryRecord)}
}

// Get retrieves a value, reporting expired or absent keys as not found.
func (m *MemoryCredentials) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return "", credential.ErrNotFound
	}
	if !rec.expiresAt.IsZero() && time.Now().After(rec.expiresAt) {
		delete(m.records, key)
		return "", credential.ErrNotFound
	}
	return rec.value, nil
}

// Set stores a value with the given lifetime.
func (m *MemoryCredentials) Set(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := memoryRecord{value: value}
	if ttl > 0 {
		rec.expiresAt = time.Now().Add(ttl)
	}
	m.records[key] = rec
	return nil
}

// Delete removes a record; absent keys are not an error.
func (m *MemoryCredentials) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

// Len reports how many live records are stored.
func (m *MemoryCredentials) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
