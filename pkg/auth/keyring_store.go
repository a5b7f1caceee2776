package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "tmscraper"

// KeyringStore keeps secrets in the system keychain
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails when it cannot be written
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return "keyring" }

func (k *KeyringStore) Set(name, value string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(keyringService, name, value); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Get(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidCredentials
	}
	v, err := keyring.Get(keyringService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrCredentialsNotFound
		}
		return "", fmt.Errorf("failed to read from keyring: %w", err)
	}
	return v, nil
}

func (k *KeyringStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := keyring.Get(keyringService, name)
	return err == nil
}
