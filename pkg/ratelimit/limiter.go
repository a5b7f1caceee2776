package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Wait blocks until a request to rawURL may proceed or ctx is done
	Wait(ctx context.Context, rawURL string) error
}

// HostLimiter keeps one token bucket per host, so pacing one image CDN
// never delays requests to another.
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter allows rps requests per second to each host with the
// given burst. A non-positive rps returns a limiter that never waits.
func NewHostLimiter(rps float64, burst int) Limiter {
	if rps <= 0 {
		return Unlimited{}
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host of rawURL has a token available
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	return h.forHost(hostOf(rawURL)).Wait(ctx)
}

// Allow reports whether a request to rawURL may proceed now, consuming a
// token if so.
func (h *HostLimiter) Allow(rawURL string) bool {
	return h.forHost(hostOf(rawURL)).Allow()
}

// Hosts returns how many hosts currently have a bucket
func (h *HostLimiter) Hosts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}

func (h *HostLimiter) forHost(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(h.limit, h.burst)
	h.limiters[host] = l
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Unlimited is a Limiter that never waits
type Unlimited struct{}

// Wait only reports context cancellation
func (Unlimited) Wait(ctx context.Context, rawURL string) error {
	return ctx.Err()
}
