package auth

import (
	"os"
	"strings"
)

const envPrefix = "TMSCRAPER_"

// EnvironmentStore reads secrets from TMSCRAPER_<NAME> variables. It is
// read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment backed store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// EnvVar returns the variable consulted for name
func EnvVar(name string) string {
	return envPrefix + strings.ToUpper(name)
}

func (e *EnvironmentStore) Name() string { return "environment" }

// Set is not supported for environment variables
func (e *EnvironmentStore) Set(name, value string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Get(name string) (string, error) {
	if v := os.Getenv(EnvVar(name)); v != "" {
		return v, nil
	}
	return "", ErrCredentialsNotFound
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvVar(name)) != ""
}
