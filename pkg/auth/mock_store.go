package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	mu      sync.RWMutex
	secrets map[string]string

	// Error injection
	SetError    error
	GetError    error
	DeleteError error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{secrets: make(map[string]string)}
}

func (m *MockStore) Name() string { return "mock" }

func (m *MockStore) Set(name, value string) error {
	if m.SetError != nil {
		return m.SetError
	}
	if name == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[name] = value
	return nil
}

func (m *MockStore) Get(name string) (string, error) {
	if m.GetError != nil {
		return "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[name]
	if !ok {
		return "", ErrCredentialsNotFound
	}
	return v, nil
}

func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.secrets, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.secrets[name]
	return ok
}

// Len returns the number of stored secrets
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}
