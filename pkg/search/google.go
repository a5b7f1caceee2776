package search

import (
	"context"
	"net/url"
	"strconv"

	"tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

const (
	// GoogleBaseURL is the Custom Search JSON API endpoint
	GoogleBaseURL = "https://www.googleapis.com/customsearch/v1"

	googlePageSize = 10
	// the API refuses start indexes beyond 100 results
	googleMaxResults = 100
)

type googleResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Title string `json:"title"`
		Image struct {
			ThumbnailLink string `json:"thumbnailLink"`
			Width         int    `json:"width"`
			Height        int    `json:"height"`
		} `json:"image"`
	} `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

// GoogleSource queries the Custom Search JSON API in image mode
type GoogleSource struct {
	client   *Client
	baseURL  string
	apiKey   string
	cx       string
	maxPages int
	logger   logger.Logger
}

// NewGoogleSource creates a Google backed source. Both the API key and the
// search engine id are required.
func NewGoogleSource(client *Client, apiKey, cx string, maxPages int, log logger.Logger) (*GoogleSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrorTypeAuth, "google api key is not set")
	}
	if cx == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "google search engine id (search.google_cx) is not set")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if maxPages <= 0 {
		maxPages = googleMaxResults / googlePageSize
	}
	return &GoogleSource{
		client:   client,
		baseURL:  GoogleBaseURL,
		apiKey:   apiKey,
		cx:       cx,
		maxPages: maxPages,
		logger:   log.WithField("engine", "google"),
	}, nil
}

// SetBaseURL points the source at another API endpoint
func (s *GoogleSource) SetBaseURL(u string) {
	s.baseURL = u
}

// Name returns "google"
func (s *GoogleSource) Name() string { return "google" }

// Search requests pages of ten results until the API reports no next page,
// max is reached, or the page or result cap is hit.
func (s *GoogleSource) Search(ctx context.Context, query string, max int) ([]Candidate, error) {
	var out []Candidate
	start := 1

	for page := 0; page < s.maxPages && start <= googleMaxResults-googlePageSize+1; page++ {
		if max > 0 && len(out) >= max {
			break
		}

		var resp googleResponse
		if err := s.client.GetJSON(ctx, s.pageURL(query, start), &resp); err != nil {
			logger.LogSearch(s.logger, s.Name(), query, len(out), err)
			return nil, err
		}

		for _, item := range resp.Items {
			out = append(out, Candidate{
				URL:       item.Link,
				Thumbnail: item.Image.ThumbnailLink,
				Title:     item.Title,
				Width:     item.Image.Width,
				Height:    item.Image.Height,
			})
		}

		if len(resp.Items) == 0 || len(resp.Queries.NextPage) == 0 {
			break
		}
		start = resp.Queries.NextPage[0].StartIndex
	}

	out = limit(out, max)
	logger.LogSearch(s.logger, s.Name(), query, len(out), nil)
	return out, nil
}

func (s *GoogleSource) pageURL(query string, start int) string {
	v := url.Values{}
	v.Set("key", s.apiKey)
	v.Set("cx", s.cx)
	v.Set("q", query)
	v.Set("searchType", "image")
	v.Set("num", strconv.Itoa(googlePageSize))
	v.Set("start", strconv.Itoa(start))
	return s.baseURL + "?" + v.Encode()
}
