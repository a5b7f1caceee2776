package downloader

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/ratelimit"
	"tmscraper/pkg/search"
)

// DefaultTimeout bounds a whole batch when no timeout is configured
const DefaultTimeout = 10 * time.Second

// LogFunc receives one human readable line per settled fetch
type LogFunc func(message string)

// ProgressFunc receives the settled fraction of a batch, in (0, 1]
type ProgressFunc func(ratio float64)

// HTTPDoer sends HTTP requests
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FileStore persists a downloaded body
type FileStore interface {
	SaveFile(dir, name string, r io.Reader) (int64, error)
}

// BatchResult summarises one DownloadAll call
type BatchResult struct {
	// Total counts candidates with a non-empty URL
	Total int
	// Attempted counts settled fetches; it equals Total on return
	Attempted int
	Saved     int
	Failed    int
	Skipped   int
	// TimedOut reports whether the batch deadline fired
	TimedOut bool
	Duration time.Duration
}

// Options tunes a Downloader
type Options struct {
	// Timeout bounds one batch as a whole
	Timeout time.Duration
	// MaxConcurrent caps in-flight fetches; values below 1 mean no cap
	MaxConcurrent int
	UserAgent     string
	Limiter       ratelimit.Limiter
	Logger        logger.Logger
}

// Downloader fetches candidate images concurrently into a directory
type Downloader struct {
	client        HTTPDoer
	store         FileStore
	timeout       time.Duration
	maxConcurrent int
	userAgent     string
	limiter       ratelimit.Limiter
	log           logger.Logger
}

// New creates a Downloader. A nil client uses a plain http.Client with no
// per-request timeout, since the batch deadline applies instead.
func New(client HTTPDoer, store FileStore, opts Options) *Downloader {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Downloader{
		client:        client,
		store:         store,
		timeout:       opts.Timeout,
		maxConcurrent: opts.MaxConcurrent,
		userAgent:     opts.UserAgent,
		limiter:       opts.Limiter,
		log:           opts.Logger.WithField("component", "downloader"),
	}
}

// NewFromConfig creates a Downloader from the download settings
func NewFromConfig(cfg config.DownloadConfig, store FileStore, log logger.Logger) *Downloader {
	return New(nil, store, Options{
		Timeout:       cfg.BatchTimeout,
		MaxConcurrent: cfg.MaxConcurrent,
		UserAgent:     cfg.UserAgent,
		Limiter:       ratelimit.NewHostLimiter(cfg.RequestsPerSecond, 1),
		Logger:        log,
	})
}

// Timeout returns the batch deadline
func (d *Downloader) Timeout() time.Duration {
	return d.timeout
}

// DownloadAll fetches every candidate with a non-empty URL into destDir,
// naming each file by its position among those candidates. All fetches
// share one deadline; when it fires, pending fetches fail fast. The call
// returns once every fetch has settled and never fails as a whole.
//
// onLog and onProgress are never invoked concurrently. onProgress is
// called once per settled fetch with a monotonically increasing ratio
// and is not called at all when there is nothing to fetch.
func (d *Downloader) DownloadAll(ctx context.Context, candidates []search.Candidate, destDir string, onLog LogFunc, onProgress ProgressFunc) BatchResult {
	start := time.Now()

	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" {
			urls = append(urls, c.URL)
		}
	}

	result := BatchResult{Total: len(urls)}
	if len(urls) == 0 {
		return result
	}

	d.log.DebugWithFields("Batch started", map[string]interface{}{
		"dir":        destDir,
		"candidates": len(candidates),
		"urls":       len(urls),
		"timeout":    d.timeout,
	})

	batchCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		mu                     sync.Mutex
		settled                atomic.Int64
		saved, failed, skipped atomic.Int64
		total                  = float64(len(urls))
	)

	logLine := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		emit(onLog, msg)
	}

	var g errgroup.Group
	if d.maxConcurrent > 0 {
		g.SetLimit(d.maxConcurrent)
	}

	for seq, u := range urls {
		g.Go(func() error {
			out := d.Fetch(batchCtx, u, destDir, seq, logLine)

			switch out.Status {
			case StatusSaved:
				saved.Add(1)
			case StatusSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}

			mu.Lock()
			n := settled.Add(1)
			if onProgress != nil {
				onProgress(float64(n) / total)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.TimedOut = stderrors.Is(batchCtx.Err(), context.DeadlineExceeded)
	result.Attempted = int(settled.Load())
	result.Saved = int(saved.Load())
	result.Failed = int(failed.Load())
	result.Skipped = int(skipped.Load())
	result.Duration = time.Since(start)
	return result
}
