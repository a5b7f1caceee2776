package search

import (
	"context"
	"fmt"
	"strings"

	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
)

// Candidate is one image search hit. URL may be empty when the engine
// returned an entry without a usable link; such entries are skipped by the
// downloader.
type Candidate struct {
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Title     string `json:"title,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Source turns a text query into candidate image URLs
type Source interface {
	// Search returns up to max candidates for query, in engine order. A
	// max of zero or less asks for everything the engine will return.
	Search(ctx context.Context, query string, max int) ([]Candidate, error)
	Name() string
}

// NewSource builds the source selected by cfg.Search.Engine
func NewSource(cfg *config.Config, keys auth.CredentialStore, log logger.Logger) (Source, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	switch strings.ToLower(cfg.Search.Engine) {
	case "", "bing":
		return NewBingSource(NewClient(cfg, log), cfg.Search, log), nil
	case "google":
		if keys == nil {
			return nil, fmt.Errorf("google search needs a credential store")
		}
		key, err := keys.Get(auth.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("google api key: %w", err)
		}
		src, err := NewGoogleSource(NewClient(cfg, log), key, cfg.Search.GoogleCX, cfg.Search.MaxPages, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "file":
		return NewFileSource(cfg.Search.URLsFile), nil
	default:
		return nil, fmt.Errorf("unknown search engine %q", cfg.Search.Engine)
	}
}

// limit trims candidates to max when max is positive
func limit(candidates []Candidate, max int) []Candidate {
	if max > 0 && len(candidates) > max {
		return candidates[:max]
	}
	return candidates
}
