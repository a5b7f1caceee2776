package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Well-known secret names
const (
	// GoogleAPIKey is the Custom Search JSON API key used by the google engine
	GoogleAPIKey = "google_api_key"
	// S3AccessKeyID and S3SecretKey, when both set, replace the AWS
	// default credential chain for archive uploads
	S3AccessKeyID = "s3_access_key_id"
	S3SecretKey   = "s3_secret_access_key"
)

// CredentialStore keeps named secrets
type CredentialStore interface {
	// Set saves value under name, replacing any previous value
	Set(name, value string) error

	// Get returns the value stored under name or ErrCredentialsNotFound
	Get(name string) (string, error)

	// Delete removes name
	Delete(name string) error

	// Exists reports whether name has a value
	Exists(name string) bool

	// Name identifies the backend in status output
	Name() string
}

// Manager reads from the first store that holds a secret and writes to the
// first store that accepts it.
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the default chain: system keychain when available, an
// encrypted file under the user config directory, then environment
// variables.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a Manager over an explicit chain
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Name returns the chain of backend names
func (m *Manager) Name() string {
	names := make([]string, 0, len(m.stores))
	for _, s := range m.stores {
		names = append(names, s.Name())
	}
	return strings.Join(names, " -> ")
}

// Set stores the secret in the first store that accepts it
func (m *Manager) Set(name, value string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: empty value for %s", ErrInvalidCredentials, name)
	}

	var lastErr error
	for _, store := range m.stores {
		err := store.Set(name, value)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store %s: %w", name, lastErr)
	}
	return ErrStoreUnavailable
}

// Get returns the secret from the first store that has it
func (m *Manager) Get(name string) (string, error) {
	for _, store := range m.stores {
		if v, err := store.Get(name); err == nil && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// Delete removes the secret from every store that holds it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if !store.Exists(name) {
			continue
		}
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete %s: %w", name, lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
	}
	return nil
}

// Exists reports whether any store holds name
func (m *Manager) Exists(name string) bool {
	return m.Source(name) != ""
}

// Source returns the name of the store that would answer Get(name), or ""
func (m *Manager) Source(name string) string {
	for _, store := range m.stores {
		if store.Exists(name) {
			return store.Name()
		}
	}
	return ""
}

// getConfigDir returns the per-user configuration directory, creating it
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "tmscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "tmscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "tmscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "tmscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// MaskSecret masks all but the first 4 and last 4 characters
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
