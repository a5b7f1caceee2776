package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TMSCRAPER_"

// Config holds all application settings. The scrape classes and training
// manifest are not part of it: they live in the session document.
type Config struct {
	Search        SearchConfig       `yaml:"search" json:"search"`
	Download      DownloadConfig     `yaml:"download" json:"download"`
	Output        OutputConfig       `yaml:"output" json:"output"`
	Pack          PackConfig         `yaml:"pack" json:"pack"`
	Retry         RetryConfig        `yaml:"retry" json:"retry"`
	Publish       PublishConfig      `yaml:"publish" json:"publish"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging"`
}

// SearchConfig selects and tunes the candidate source
type SearchConfig struct {
	// Engine is one of "bing", "google" or "file"
	Engine    string `yaml:"engine" json:"engine"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// MaxPages bounds an "all it can find" search
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	PageSize int `yaml:"page_size" json:"page_size"`
	// GoogleCX is the Programmable Search Engine id used by the google engine
	GoogleCX string `yaml:"google_cx" json:"google_cx"`
	// URLsFile is read by the file engine
	URLsFile          string        `yaml:"urls_file" json:"urls_file"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// DownloadConfig tunes the per-class batch download
type DownloadConfig struct {
	// BatchTimeout bounds one class batch as a whole, not each request
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	// MaxConcurrent caps in-flight fetches; 0 means one goroutine per candidate
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`
	// RequestsPerSecond paces requests per host; 0 disables pacing
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	UserAgent         string  `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// PackConfig tunes image preprocessing for the archive
type PackConfig struct {
	ImageSize   int    `yaml:"image_size" json:"image_size"`
	JPEGQuality int    `yaml:"jpeg_quality" json:"jpeg_quality"`
	Flip        bool   `yaml:"flip" json:"flip"`
	// StagingDir is the parent of the temporary staging directory; empty
	// means the system temp directory
	StagingDir string `yaml:"staging_dir" json:"staging_dir"`
}

// RetryConfig holds retry configuration for search page requests
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// PublishConfig configures uploading packed archives to S3
type PublishConfig struct {
	Region       string `yaml:"region" json:"region"`
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" json:"use_path_style"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File receives log output; empty means the console
	File string `yaml:"file" json:"file"`
	// Console mirrors file output to stderr when File is set
	Console bool `yaml:"console" json:"console"`
}

// DefaultUserAgent is sent unless the user configures another one
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Engine:            "bing",
			UserAgent:         DefaultUserAgent,
			MaxPages:          5,
			PageSize:          35,
			RequestsPerSecond: 2,
			RequestTimeout:    15 * time.Second,
		},
		Download: DownloadConfig{
			BatchTimeout:  10 * time.Second,
			MaxConcurrent: 0,
			UserAgent:     DefaultUserAgent,
		},
		Output: OutputConfig{
			BaseDirectory: "./out",
		},
		Pack: PackConfig{
			ImageSize:   224,
			JPEGQuality: 92,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			BaseDelay:    500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Publish: PublishConfig{
			Region: "us-east-1",
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv applies TMSCRAPER_* environment variables. Malformed
// numeric values are reported rather than ignored.
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst *float64) {
		if v := os.Getenv(envPrefix + name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(envPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	setString("SEARCH_ENGINE", &c.Search.Engine)
	setString("USER_AGENT", &c.Search.UserAgent)
	setString("USER_AGENT", &c.Download.UserAgent)
	setString("GOOGLE_CX", &c.Search.GoogleCX)
	setString("URLS_FILE", &c.Search.URLsFile)
	setInt("MAX_PAGES", &c.Search.MaxPages)
	setFloat("SEARCH_RPS", &c.Search.RequestsPerSecond)

	setDuration("BATCH_TIMEOUT", &c.Download.BatchTimeout)
	setInt("MAX_CONCURRENT", &c.Download.MaxConcurrent)
	setFloat("DOWNLOAD_RPS", &c.Download.RequestsPerSecond)

	setString("OUTPUT_DIR", &c.Output.BaseDirectory)

	setInt("IMAGE_SIZE", &c.Pack.ImageSize)
	setInt("JPEG_QUALITY", &c.Pack.JPEGQuality)

	setString("S3_REGION", &c.Publish.Region)
	setString("S3_ENDPOINT", &c.Publish.Endpoint)

	setBool("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// ConfigLocations lists the files searched when no path is given, in
// order of precedence.
func ConfigLocations() []string {
	home := os.Getenv("HOME")
	return []string{
		".tmscraper.yaml",
		".tmscraper.yml",
		filepath.Join(home, ".config", "tmscraper", "config.yaml"),
		filepath.Join(home, ".config", "tmscraper", "config.yml"),
		filepath.Join(home, ".tmscraper.yaml"),
	}
}

// FindConfigFile returns the first existing file from ConfigLocations
func FindConfigFile() string {
	for _, loc := range ConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Search.Engine) {
	case "bing", "google", "file":
	default:
		errs = append(errs, fmt.Errorf("unknown search engine %q", c.Search.Engine))
	}
	if strings.EqualFold(c.Search.Engine, "file") && c.Search.URLsFile == "" {
		errs = append(errs, errors.New("the file search engine needs search.urls_file"))
	}
	if c.Search.MaxPages <= 0 {
		errs = append(errs, errors.New("search max pages must be positive"))
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, errors.New("search page size must be positive"))
	}
	if c.Search.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("search requests per second cannot be negative"))
	}

	if c.Download.BatchTimeout <= 0 {
		errs = append(errs, errors.New("batch timeout must be positive"))
	}
	if c.Download.MaxConcurrent < 0 {
		errs = append(errs, errors.New("max concurrent downloads cannot be negative"))
	}
	if c.Download.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("download requests per second cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Pack.ImageSize <= 0 {
		errs = append(errs, errors.New("pack image size must be positive"))
	}
	if c.Pack.JPEGQuality < 1 || c.Pack.JPEGQuality > 100 {
		errs = append(errs, errors.New("jpeg quality must be between 1 and 100"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("retry max attempts must be positive"))
		}
		if c.Retry.Multiplier < 1 {
			errs = append(errs, errors.New("retry multiplier must be at least 1"))
		}
		if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
			errs = append(errs, errors.New("retry jitter factor must be between 0 and 1"))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Overrides carries values set explicitly on the command line. Zero
// values leave the loaded configuration untouched.
type Overrides struct {
	OutputDir    string
	Engine       string
	URLsFile     string
	BatchTimeout time.Duration
	ImageSize    int
	LogLevel     string
	LogFile      string
}

// Apply merges explicit command line values into c
func (c *Config) Apply(o Overrides) {
	if o.OutputDir != "" {
		c.Output.BaseDirectory = o.OutputDir
	}
	if o.Engine != "" {
		c.Search.Engine = o.Engine
	}
	if o.URLsFile != "" {
		c.Search.URLsFile = o.URLsFile
	}
	if o.BatchTimeout > 0 {
		c.Download.BatchTimeout = o.BatchTimeout
	}
	if o.ImageSize > 0 {
		c.Pack.ImageSize = o.ImageSize
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFile != "" {
		c.Logging.File = o.LogFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, overrides Overrides) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tmscraper.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.Apply(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
