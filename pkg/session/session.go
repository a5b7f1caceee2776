package session

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"tmscraper/pkg/errors"
	"tmscraper/pkg/storage"
)

// FileExt is appended to saved session paths
const FileExt = ".json"

// Session is the editable state shared by every wizard screen
type Session struct {
	Scrape   *ScrapeConfiguration
	Manifest *ManifestConfiguration
	// Dirty is set by Mutate and cleared by Save and Load
	Dirty bool
}

type document struct {
	Scrape   *ScrapeConfiguration   `json:"scrape"`
	Manifest *ManifestConfiguration `json:"manifest"`
}

// New returns a session with the default classes and manifest
func New() *Session {
	return &Session{
		Scrape:   NewScrapeConfiguration(),
		Manifest: NewManifestConfiguration(),
	}
}

// Mutate applies fn to the configurations and marks the session dirty when
// fn succeeds.
func (s *Session) Mutate(fn func(sc *ScrapeConfiguration, m *ManifestConfiguration) error) error {
	if err := fn(s.Scrape, s.Manifest); err != nil {
		return err
	}
	s.Dirty = true
	return nil
}

// SavePath returns base with FileExt appended unless already present
func SavePath(base string) string {
	if strings.HasSuffix(strings.ToLower(base), FileExt) {
		return base
	}
	return base + FileExt
}

// Save writes the session to SavePath(base) and returns that path
func (s *Session) Save(base string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New(errors.ErrorTypeValidation, "a file name is required")
	}

	data, err := json.Marshal(document{Scrape: s.Scrape, Manifest: s.Manifest})
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeIO, err, "encode session")
	}

	path := SavePath(base)
	if _, err := storage.WriteAtomic(path, bytes.NewReader(data)); err != nil {
		return "", err
	}
	s.Dirty = false
	return path, nil
}

// Load reads a session document. Missing manifest fields keep their
// defaults; a missing scrape section is an error.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, err, "read session")
	}
	return Parse(data)
}

// Parse decodes and validates a session document
func Parse(data []byte) (*Session, error) {
	doc := document{Manifest: NewManifestConfiguration()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeDecode, err, "decode session")
	}
	if doc.Scrape == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "session has no scrape section")
	}
	if doc.Manifest == nil {
		doc.Manifest = NewManifestConfiguration()
	}
	doc.Manifest.normalize()

	if err := doc.Scrape.Validate(); err != nil {
		return nil, err
	}
	if err := doc.Manifest.Validate(); err != nil {
		return nil, err
	}
	return &Session{Scrape: doc.Scrape, Manifest: doc.Manifest}, nil
}
