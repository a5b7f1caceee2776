package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"tmscraper/pkg/errors"
	"tmscraper/pkg/extension"
	"tmscraper/pkg/logger"
)

// Status is the settled state of one fetch
type Status int

const (
	StatusSaved Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome describes how a single fetch settled. It is not kept once the
// batch finishes.
type Outcome struct {
	Status   Status
	URL      string
	Sequence int
	// Path, Extension and Bytes are set only when Status is StatusSaved
	Path      string
	Extension string
	Bytes     int64
	// Err holds the reason for StatusFailed and StatusSkipped
	Err      error
	Duration time.Duration
}

// Fetch downloads rawURL into destDir as "{seq}.{ext}". It never returns
// an error: every failure is folded into the Outcome and reported through
// exactly one onLog call.
func (d *Downloader) Fetch(ctx context.Context, rawURL, destDir string, seq int, onLog LogFunc) Outcome {
	start := time.Now()
	out := d.fetch(ctx, rawURL, destDir, seq)
	out.Duration = time.Since(start)

	switch out.Status {
	case StatusSaved:
		emit(onLog, fmt.Sprintf("Downloaded to '%s'", out.Path))
	case StatusSkipped:
		emit(onLog, fmt.Sprintf("Skipped '%s': %v", rawURL, out.Err))
	default:
		emit(onLog, fmt.Sprintf("Error while downloading from '%s': %v", rawURL, out.Err))
	}

	logger.LogFetch(d.log, rawURL, seq, out.Status.String(), out.Bytes, out.Duration, out.Err)
	return out
}

func (d *Downloader) fetch(ctx context.Context, rawURL, destDir string, seq int) Outcome {
	out := Outcome{URL: rawURL, Sequence: seq, Status: StatusFailed}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		out.Status = StatusSkipped
		out.Err = errors.Newf(errors.ErrorTypeValidation, "not an http(s) url")
		return out
	}

	if err := d.limiter.Wait(ctx, rawURL); err != nil {
		out.Err = classify(ctx, err, "wait for rate limiter")
		return out
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		out.Err = errors.Wrap(errors.ErrorTypeNetwork, err, "build request")
		return out
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		out.Err = classify(ctx, err, "request failed")
		return out
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Err = errors.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode))
		return out
	}

	ext, err := extension.Resolve(resp.Header.Get("Content-Type"), rawURL)
	if err != nil {
		out.Err = err
		return out
	}

	name := fmt.Sprintf("%d.%s", seq, ext)
	body := &trackingReader{r: resp.Body}
	n, err := d.store.SaveFile(destDir, name, body)
	if err != nil {
		if body.err != nil {
			out.Err = classify(ctx, body.err, "read body")
		} else {
			out.Err = err
		}
		return out
	}

	out.Status = StatusSaved
	out.Path = filepath.Join(destDir, name)
	out.Extension = ext
	out.Bytes = n
	return out
}

// classify maps transport errors to timeout when the batch deadline or a
// cancellation caused them, and to network otherwise.
func classify(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Wrap(errors.ErrorTypeTimeout, err, msg)
	}
	return errors.Wrap(errors.ErrorTypeNetwork, err, msg)
}

// trackingReader remembers the first read error so a failed save can be
// attributed to the network rather than the disk.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

func emit(onLog LogFunc, msg string) {
	if onLog != nil {
		onLog(msg)
	}
}
