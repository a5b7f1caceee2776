package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Download.BatchTimeout != 10*time.Second {
		t.Errorf("Expected default batch timeout to be 10s, got %v", config.Download.BatchTimeout)
	}

	if config.Download.MaxConcurrent != 0 {
		t.Errorf("Expected unlimited concurrency by default, got %d", config.Download.MaxConcurrent)
	}

	if config.Output.BaseDirectory != "./out" {
		t.Errorf("Expected default output directory to be ./out, got %s", config.Output.BaseDirectory)
	}

	if config.Pack.ImageSize != 224 {
		t.Errorf("Expected default image size to be 224, got %d", config.Pack.ImageSize)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TMSCRAPER_SEARCH_ENGINE", "google")
	t.Setenv("TMSCRAPER_GOOGLE_CX", "cx-123")
	t.Setenv("TMSCRAPER_BATCH_TIMEOUT", "30s")
	t.Setenv("TMSCRAPER_OUTPUT_DIR", "/tmp/test-out")
	t.Setenv("TMSCRAPER_MAX_CONCURRENT", "4")
	t.Setenv("TMSCRAPER_IMAGE_SIZE", "128")
	t.Setenv("TMSCRAPER_NOTIFICATIONS_ENABLED", "true")
	t.Setenv("TMSCRAPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "google", config.Search.Engine)
	assert.Equal(t, "cx-123", config.Search.GoogleCX)
	assert.Equal(t, 30*time.Second, config.Download.BatchTimeout)
	assert.Equal(t, "/tmp/test-out", config.Output.BaseDirectory)
	assert.Equal(t, 4, config.Download.MaxConcurrent)
	assert.Equal(t, 128, config.Pack.ImageSize)
	assert.True(t, config.Notifications.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("TMSCRAPER_MAX_CONCURRENT", "lots")
	t.Setenv("TMSCRAPER_BATCH_TIMEOUT", "ten seconds")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TMSCRAPER_MAX_CONCURRENT")
	assert.Contains(t, err.Error(), "TMSCRAPER_BATCH_TIMEOUT")
	assert.Equal(t, 10*time.Second, config.Download.BatchTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"unknown engine", func(c *Config) { c.Search.Engine = "altavista" }, true},
		{"file engine without file", func(c *Config) { c.Search.Engine = "file" }, true},
		{"file engine with file", func(c *Config) {
			c.Search.Engine = "file"
			c.Search.URLsFile = "urls.txt"
		}, false},
		{"zero batch timeout", func(c *Config) { c.Download.BatchTimeout = 0 }, true},
		{"negative concurrency", func(c *Config) { c.Download.MaxConcurrent = -1 }, true},
		{"empty output dir", func(c *Config) { c.Output.BaseDirectory = "" }, true},
		{"bad jpeg quality", func(c *Config) { c.Pack.JPEGQuality = 101 }, true},
		{"bad image size", func(c *Config) { c.Pack.ImageSize = 0 }, true},
		{"retry disabled ignores attempts", func(c *Config) {
			c.Retry.Enabled = false
			c.Retry.MaxAttempts = 0
		}, false},
		{"invalid log level", func(c *Config) { c.Logging.Level = "invalid" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	config := DefaultConfig()
	config.Apply(Overrides{
		OutputDir:    "/flag/output",
		Engine:       "file",
		URLsFile:     "list.txt",
		BatchTimeout: 3 * time.Second,
		LogLevel:     "error",
	})

	assert.Equal(t, "/flag/output", config.Output.BaseDirectory)
	assert.Equal(t, "file", config.Search.Engine)
	assert.Equal(t, "list.txt", config.Search.URLsFile)
	assert.Equal(t, 3*time.Second, config.Download.BatchTimeout)
	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, 224, config.Pack.ImageSize)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	config := DefaultConfig()
	config.Download.BatchTimeout = 25 * time.Second
	config.Pack.JPEGQuality = 80
	config.Search.Engine = "google"

	require.NoError(t, config.Save(configPath))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, 25*time.Second, loaded.Download.BatchTimeout)
	assert.Equal(t, 80, loaded.Pack.JPEGQuality)
	assert.Equal(t, "google", loaded.Search.Engine)
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data, err := yaml.Marshal(map[string]interface{}{
		"output": map[string]interface{}{"base_directory": "/data/out"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "/data/out", config.Output.BaseDirectory)
	assert.Equal(t, 10*time.Second, config.Download.BatchTimeout)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  base_directory: /from/file\nlogging:\n  level: warn\n"), 0644))

	t.Setenv("TMSCRAPER_LOG_LEVEL", "debug")

	config, err := Load(path, Overrides{OutputDir: "/from/flag"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", config.Output.BaseDirectory)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: [unclosed"), 0644))

	_, err := Load(path, Overrides{})
	assert.Error(t, err)
}
