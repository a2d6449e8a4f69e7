package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/99designs/keyring"
)

const serviceName = "dashterm"

// KeyringStore implements Store on top of the system keyring.
type KeyringStore struct {
	open func() (keyring.Keyring, error)
}

// NewKeyringStore returns a Store backed by the system keyring.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{open: openKeyring}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/dashterm/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("dashterm-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
// Expired records are removed and reported as ErrNotFound.
func (s *KeyringStore) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	value, err := decodeRecord(item.Data)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = ring.Remove(key)
		}
		return "", err
	}

	return value, nil
}

// Set stores a credential value by key in the system keyring.
func (s *KeyringStore) Set(key, value string, ttl time.Duration) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	data, err := encodeRecord(value, ttl)
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func (s *KeyringStore) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
