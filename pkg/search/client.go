package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tmscraper/pkg/config"
	"tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/ratelimit"
	"tmscraper/pkg/retry"
)

// maxBodySize bounds a single search response
const maxBodySize = 8 << 20

// Client issues search engine requests with browser-like headers, per-host
// pacing and retries on transient failures.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a search client from the application settings
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	timeout := cfg.Search.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ua := cfg.Search.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      ua,
			"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Sec-Fetch-Dest":  "empty",
			"Sec-Fetch-Mode":  "cors",
			"Sec-Fetch-Site":  "same-origin",
		},
		limiter: ratelimit.NewHostLimiter(cfg.Search.RequestsPerSecond, 1),
		retry:   retry.FromConfig(cfg.Retry, log),
		logger:  log.WithField("component", "search_client"),
	}
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// SetHeader overrides or adds a request header
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Get fetches url and returns the response body. Transient failures are
// retried according to the retry settings.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, url)
	})
}

// GetJSON fetches url and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.Wrap(errors.ErrorTypeDecode, err, "parse JSON response")
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeValidation, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    url,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnWithFields("search request rejected", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		return nil, errors.FromStatus(resp.StatusCode, fmt.Sprintf("search request returned %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "read response body")
	}
	return body, nil
}
