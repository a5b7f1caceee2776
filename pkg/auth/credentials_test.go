package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManagerFallsBackAcrossStores(t *testing.T) {
	failing := NewMockStore()
	failing.SetError = errors.New("locked")
	backup := NewMockStore()
	m := NewManagerWithStores(failing, backup)

	if err := m.Set(GoogleAPIKey, "AIza-test-key-123456"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if failing.Len() != 0 || backup.Len() != 1 {
		t.Fatalf("Expected the secret in the backup store only, got %d/%d", failing.Len(), backup.Len())
	}

	got, err := m.Get(GoogleAPIKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "AIza-test-key-123456" {
		t.Errorf("Get = %q", got)
	}
	if src := m.Source(GoogleAPIKey); src != "mock" {
		t.Errorf("Source = %q, want mock", src)
	}

	if err := m.Delete(GoogleAPIKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if m.Exists(GoogleAPIKey) {
		t.Error("Expected the secret to be gone")
	}
	if _, err := m.Get(GoogleAPIKey); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestManagerRejectsEmptyValues(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())
	if err := m.Set(GoogleAPIKey, "   "); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if err := m.Set("", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for empty name, got %v", err)
	}
}

func TestManagerDeleteMissing(t *testing.T) {
	m := NewManagerWithStores(NewMockStore(), NewEnvironmentStore())
	if err := m.Delete("nothing"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("TMSCRAPER_GOOGLE_API_KEY", "from-env")
	s := NewEnvironmentStore()

	if EnvVar(GoogleAPIKey) != "TMSCRAPER_GOOGLE_API_KEY" {
		t.Errorf("EnvVar = %s", EnvVar(GoogleAPIKey))
	}
	v, err := s.Get(GoogleAPIKey)
	if err != nil || v != "from-env" {
		t.Errorf("Get = %q, %v", v, err)
	}
	if !s.Exists(GoogleAPIKey) {
		t.Error("Expected Exists to be true")
	}
	if err := s.Set(GoogleAPIKey, "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected read-only store, got %v", err)
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.enc")
	s, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := s.Set(GoogleAPIKey, "secret-one"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(S3SecretKey, "secret-two"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if strings.Contains(string(raw), "secret-one") {
		t.Error("Secret is stored in plain text")
	}

	reopened, _ := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	if v, err := reopened.Get(GoogleAPIKey); err != nil || v != "secret-one" {
		t.Errorf("Get = %q, %v", v, err)
	}

	wrong, _ := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	if _, err := wrong.Get(GoogleAPIKey); err == nil {
		t.Error("Expected decryption to fail with the wrong passphrase")
	}

	if err := s.Delete(GoogleAPIKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(S3SecretKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected the file to be removed once empty")
	}
	if _, err := s.Get(GoogleAPIKey); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"short":                "********",
		"AIzaSyExampleKey1234": "AIza...1234",
	}
	for in, want := range tests {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
