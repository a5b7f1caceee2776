package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/pkg/errors"
	"tmscraper/pkg/extension"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/search"
	"tmscraper/pkg/storage"
)

// imageServer serves "/img/<id>?delay=<ms>" as image/png with body "img-<id>".
// "/html" returns text/html, "/missing" 404s, "/bare/<name>" returns no
// Content-Type header at all and "/slow" blocks until the client gives up.
func imageServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var inFlight, peak atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		if ms, err := strconv.Atoi(r.URL.Query().Get("delay")); err == nil {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprintf(w, "img-%s", strings.TrimPrefix(r.URL.Path, "/img/"))
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html></html>")
	})
	mux.HandleFunc("/missing", http.NotFound)
	mux.HandleFunc("/bare/", func(w http.ResponseWriter, r *http.Request) {
		// a nil value suppresses net/http content sniffing
		w.Header()["Content-Type"] = nil
		fmt.Fprint(w, "bare")
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &peak
}

func newTestDownloader(t *testing.T, opts Options) (*Downloader, string) {
	t.Helper()
	manager, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	dir, err := manager.ClassDir("cat")
	require.NoError(t, err)

	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	return New(nil, manager, opts), dir
}

// recorder collects callbacks and fails the test on concurrent invocation
type recorder struct {
	t        *testing.T
	busy     atomic.Bool
	mu       sync.Mutex
	logs     []string
	progress []float64
}

func (r *recorder) enter() {
	if !r.busy.CompareAndSwap(false, true) {
		r.t.Error("callbacks invoked concurrently")
	}
}

func (r *recorder) onLog(msg string) {
	r.enter()
	defer r.busy.Store(false)
	r.mu.Lock()
	r.logs = append(r.logs, msg)
	r.mu.Unlock()
}

func (r *recorder) onProgress(ratio float64) {
	r.enter()
	defer r.busy.Store(false)
	r.mu.Lock()
	r.progress = append(r.progress, ratio)
	r.mu.Unlock()
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	files, err := storage.ListFiles(dir)
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestDownloadAllSkipsCandidatesWithoutURL(t *testing.T) {
	server, _ := imageServer(t)
	d, dir := newTestDownloader(t, Options{})
	rec := &recorder{t: t}

	candidates := []search.Candidate{
		{URL: server.URL + "/img/a"},
		{Title: "no link"},
		{URL: server.URL + "/img/b"},
		{URL: ""},
		{URL: server.URL + "/img/c"},
	}

	result := d.DownloadAll(context.Background(), candidates, dir, rec.onLog, rec.onProgress)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 3, result.Saved)
	assert.False(t, result.TimedOut)

	require.Len(t, rec.progress, 3)
	assert.Equal(t, 1.0, rec.progress[2])
	assert.True(t, sort.Float64sAreSorted(rec.progress))
	assert.Len(t, rec.logs, 3)
	for _, line := range rec.logs {
		assert.True(t, strings.HasPrefix(line, "Downloaded to '"), line)
	}

	assert.Equal(t, []string{"0.png", "1.png", "2.png"}, listDir(t, dir))
	content, err := os.ReadFile(filepath.Join(dir, "1.png"))
	require.NoError(t, err)
	assert.Equal(t, "img-b", string(content))
}

func TestDownloadAllNamesBySequenceNotCompletion(t *testing.T) {
	server, _ := imageServer(t)

	run := func(delays []int) map[string]string {
		d, dir := newTestDownloader(t, Options{})
		var candidates []search.Candidate
		for i, ms := range delays {
			candidates = append(candidates, search.Candidate{
				URL: fmt.Sprintf("%s/img/%d?delay=%d", server.URL, i, ms),
			})
		}
		d.DownloadAll(context.Background(), candidates, dir, nil, nil)

		got := map[string]string{}
		for _, name := range listDir(t, dir) {
			data, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			got[name] = string(data)
		}
		return got
	}

	forward := run([]int{0, 20, 40, 60, 80})
	reversed := run([]int{80, 60, 40, 20, 0})

	assert.Equal(t, forward, reversed)
	assert.Len(t, forward, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("img-%d", i), forward[fmt.Sprintf("%d.png", i)])
	}
}

func TestDownloadAllTimeout(t *testing.T) {
	server, _ := imageServer(t)
	d, dir := newTestDownloader(t, Options{Timeout: 150 * time.Millisecond})
	rec := &recorder{t: t}

	candidates := []search.Candidate{
		{URL: server.URL + "/img/fast"},
		{URL: server.URL + "/slow"},
	}

	start := time.Now()
	result := d.DownloadAll(context.Background(), candidates, dir, rec.onLog, rec.onProgress)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 5*time.Second)
	assert.True(t, result.TimedOut)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, rec.progress, 2)
	assert.Equal(t, 1.0, rec.progress[1])
	assert.Equal(t, []string{"0.png"}, listDir(t, dir))

	var failures []string
	for _, line := range rec.logs {
		if strings.HasPrefix(line, "Error while downloading from '"+server.URL+"/slow'") {
			failures = append(failures, line)
		}
	}
	assert.Len(t, failures, 1)
}

func TestFetchTimeoutIsTyped(t *testing.T) {
	server, _ := imageServer(t)
	d, dir := newTestDownloader(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := d.Fetch(ctx, server.URL+"/slow", dir, 0, nil)
	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeTimeout), "got %v", out.Err)
}

func TestDownloadAllEmpty(t *testing.T) {
	d, dir := newTestDownloader(t, Options{})
	called := false

	result := d.DownloadAll(context.Background(), []search.Candidate{{}, {Title: "x"}}, dir,
		func(string) { called = true },
		func(float64) { called = true },
	)

	assert.Equal(t, BatchResult{}, result)
	assert.False(t, called)
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadAllDuplicatesAreNotMerged(t *testing.T) {
	server, _ := imageServer(t)
	d, dir := newTestDownloader(t, Options{})

	u := server.URL + "/img/same"
	result := d.DownloadAll(context.Background(), []search.Candidate{{URL: u}, {URL: u}}, dir, nil, nil)

	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, []string{"0.png", "1.png"}, listDir(t, dir))
}

func TestDownloadAllMixedFailuresNeverAbort(t *testing.T) {
	server, _ := imageServer(t)
	d, dir := newTestDownloader(t, Options{})
	rec := &recorder{t: t}

	candidates := []search.Candidate{
		{URL: server.URL + "/html"},
		{URL: server.URL + "/missing"},
		{URL: "ftp://example.com/x.jpg"},
		{URL: server.URL + "/img/ok"},
		{URL: "http://127.0.0.1:1/refused.jpg"},
	}
	result := d.DownloadAll(context.Background(), candidates, dir, rec.onLog, rec.onProgress)

	assert.Equal(t, 5, result.Attempted)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, result.Failed)
	assert.Len(t, rec.logs, 5)
	assert.Len(t, rec.progress, 5)
	assert.Equal(t, []string{"3.png"}, listDir(t, dir))
}

func TestDownloadAllMaxConcurrent(t *testing.T) {
	server, peak := imageServer(t)
	d, dir := newTestDownloader(t, Options{MaxConcurrent: 2})

	var candidates []search.Candidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, search.Candidate{URL: fmt.Sprintf("%s/img/%d?delay=30", server.URL, i)})
	}
	result := d.DownloadAll(context.Background(), candidates, dir, nil, nil)

	assert.Equal(t, 8, result.Saved)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestFetchOutcomes(t *testing.T) {
	server, _ := imageServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus Status
		wantFile   string
		wantErr    error
		wantType   errors.ErrorType
	}{
		{"image", "/img/x", StatusSaved, "7.png", nil, ""},
		{"not an image", "/html", StatusFailed, "", extension.ErrNotAnImage, errors.ErrorTypeNotAnImage},
		{"http error", "/missing", StatusFailed, "", nil, errors.ErrorTypeNotFound},
		{"extension from url", "/bare/photo.JPG?size=large", StatusSaved, "7.jpg", nil, ""},
		{"no extension anywhere", "/bare/photo", StatusFailed, "", extension.ErrNoExtension, errors.ErrorTypeNoExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, dir := newTestDownloader(t, Options{})
			var lines []string

			out := d.Fetch(context.Background(), server.URL+tt.path, dir, 7, func(m string) { lines = append(lines, m) })

			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, 7, out.Sequence)
			require.Len(t, lines, 1)

			if tt.wantStatus == StatusSaved {
				assert.Equal(t, filepath.Join(dir, tt.wantFile), out.Path)
				assert.Equal(t, fmt.Sprintf("Downloaded to '%s'", out.Path), lines[0])
				assert.FileExists(t, out.Path)
				assert.Positive(t, out.Bytes)
				return
			}

			assert.Empty(t, listDir(t, dir))
			assert.True(t, strings.HasPrefix(lines[0], "Error while downloading from '"+server.URL+tt.path+"': "), lines[0])
			if tt.wantErr != nil {
				assert.True(t, stderrors.Is(out.Err, tt.wantErr))
			}
			assert.True(t, errors.IsType(out.Err, tt.wantType), "got %v", out.Err)
		})
	}
}

func TestFetchWriteFailureIsIO(t *testing.T) {
	server, _ := imageServer(t)
	d, dir := newTestDownloader(t, Options{})

	out := d.Fetch(context.Background(), server.URL+"/img/x", filepath.Join(dir, "gone"), 0, nil)
	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeIO), "got %v", out.Err)
}

func TestFetchKeepsFilesInsideDestDir(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/"+strings.TrimPrefix(r.URL.Path, "/"))
		w.Write([]byte("img"))
	}))
	defer server.Close()

	d, dir := newTestDownloader(t, Options{})

	out := d.Fetch(context.Background(), server.URL+"/x/../../escaped", dir, 0, nil)
	require.Equal(t, StatusSaved, out.Status, "err: %v", out.Err)
	assert.Equal(t, "x", out.Extension)
	assert.Equal(t, dir, filepath.Dir(out.Path))

	out = d.Fetch(context.Background(), server.URL+`/..%5C..%5Cescaped`, dir, 1, nil)
	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, stderrors.Is(out.Err, extension.ErrNoExtension), "got %v", out.Err)

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cat", entries[0].Name())
	assert.Equal(t, []string{"0.x"}, listDir(t, dir))
}

func TestFetchSendsUserAgent(t *testing.T) {
	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
		w.Header().Set("Content-Type", "image/gif")
		w.Write([]byte("GIF89a"))
	}))
	defer server.Close()

	d, dir := newTestDownloader(t, Options{UserAgent: "tmscraper-test"})
	out := d.Fetch(context.Background(), server.URL+"/a", dir, 0, nil)

	assert.Equal(t, StatusSaved, out.Status)
	assert.Equal(t, "gif", out.Extension)
	assert.Equal(t, "tmscraper-test", <-agents)
}

func TestDefaults(t *testing.T) {
	d := New(nil, nil, Options{Logger: logger.NewNopLogger()})
	assert.Equal(t, DefaultTimeout, d.Timeout())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
}
