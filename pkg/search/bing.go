package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tmscraper/pkg/config"
	"tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

const (
	// BingBaseURL serves the paged image results fragment
	BingBaseURL     = "https://www.bing.com/images/async"
	defaultPageSize = 35
	defaultMaxPages = 5
)

// bingMeta is the JSON carried in the "m" attribute of each result anchor
type bingMeta struct {
	MediaURL string `json:"murl"`
	ThumbURL string `json:"turl"`
	Title    string `json:"t"`
}

// BingSource scrapes Bing image search result pages
type BingSource struct {
	client   *Client
	baseURL  string
	pageSize int
	maxPages int
	logger   logger.Logger
}

// NewBingSource creates a Bing backed source
func NewBingSource(client *Client, cfg config.SearchConfig, log logger.Logger) *BingSource {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &BingSource{
		client:   client,
		baseURL:  BingBaseURL,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		logger:   log.WithField("engine", "bing"),
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultPageSize
	}
	if s.maxPages <= 0 {
		s.maxPages = defaultMaxPages
	}
	return s
}

// SetBaseURL points the source at another results endpoint
func (s *BingSource) SetBaseURL(u string) {
	s.baseURL = u
}

// Name returns "bing"
func (s *BingSource) Name() string { return "bing" }

// Search pages through results until a page adds nothing new, max
// candidates were collected, or the page cap is reached. A result repeated
// from an earlier page is dropped since Bing replays its last page once the
// results run out; repeats within one page are kept.
func (s *BingSource) Search(ctx context.Context, query string, max int) ([]Candidate, error) {
	var (
		out  []Candidate
		seen = make(map[string]bool)
	)

	for page := 0; page < s.maxPages; page++ {
		if max > 0 && len(out) >= max {
			break
		}

		body, err := s.client.Get(ctx, s.pageURL(query, page*s.pageSize))
		if err != nil {
			if len(out) > 0 && ctx.Err() == nil {
				s.logger.WarnWithFields("Stopping after failed results page", map[string]interface{}{
					"query": query,
					"page":  page,
					"error": err.Error(),
				})
				break
			}
			logger.LogSearch(s.logger, s.Name(), query, len(out), err)
			return nil, err
		}

		found, err := parseBingPage(body)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, c := range found {
			if c.URL != "" && seen[c.URL] {
				continue
			}
			out = append(out, c)
			added++
		}
		for _, c := range found {
			if c.URL != "" {
				seen[c.URL] = true
			}
		}
		if added == 0 {
			break
		}
	}

	out = limit(out, max)
	logger.LogSearch(s.logger, s.Name(), query, len(out), nil)
	return out, nil
}

func (s *BingSource) pageURL(query string, first int) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("first", strconv.Itoa(first))
	v.Set("count", strconv.Itoa(s.pageSize))
	v.Set("mmasync", "1")
	return s.baseURL + "?" + v.Encode()
}

// parseBingPage extracts candidates from one results fragment. Anchors with
// an unreadable "m" attribute produce a candidate without a URL.
func parseBingPage(body []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeDecode, err, "parse results page")
	}

	var out []Candidate
	doc.Find("a.iusc").Each(func(_ int, sel *goquery.Selection) {
		raw, ok := sel.Attr("m")
		if !ok {
			return
		}
		var meta bingMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			out = append(out, Candidate{})
			return
		}
		out = append(out, Candidate{
			URL:       strings.TrimSpace(meta.MediaURL),
			Thumbnail: meta.ThumbURL,
			Title:     meta.Title,
		})
	})
	return out, nil
}
