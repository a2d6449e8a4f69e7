// Package credential provides durable storage for session credentials.
// Records carry independent expirations so the short-lived access token
// and long-lived refresh token age out separately, the way the original
// web client's cookies did.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Well-known record keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// ErrNotFound is returned when no record exists for a key, or the
// stored record has expired.
var ErrNotFound = errors.New("credential not found")

// Store is the persistence contract for session credentials. The keyring
// implementation is used in production; tests substitute an in-memory fake.
type Store interface {
	// Get retrieves the value for key. Returns ErrNotFound when the key
	// is absent or its record has expired.
	Get(key string) (string, error)

	// Set stores value under key with the given lifetime. A zero ttl
	// stores the record without expiry.
	Set(key, value string, ttl time.Duration) error

	// Delete removes the record for key. Deleting an absent key is not
	// an error.
	Delete(key string) error
}

// record is the envelope persisted for each credential value.
type record struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// encodeRecord serializes a value with its expiry for storage.
func encodeRecord(value string, ttl time.Duration) ([]byte, error) {
	rec := record{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding credential record: %w", err)
	}
	return data, nil
}

// decodeRecord parses a stored record and enforces its expiry.
func decodeRecord(data []byte) (string, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("decoding credential record: %w", err)
	}
	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		return "", ErrNotFound
	}
	return rec.Value, nil
}
