package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/search"
	"tmscraper/pkg/session"
	"tmscraper/pkg/storage"
)

// stubSource returns canned candidates per query
type stubSource struct {
	mu      sync.Mutex
	results map[string][]search.Candidate
	errs    map[string]error
	queries []string
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Search(ctx context.Context, query string, max int) ([]search.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.results[query], nil
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprintf(w, "jpeg:%s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(t *testing.T, src search.Source) (*Scraper, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "out")
	store, err := storage.NewManager(root)
	require.NoError(t, err)
	dl := downloader.New(nil, store, downloader.Options{Logger: logger.NewNopLogger()})
	return New(src, dl, store, logger.NewNopLogger()), root
}

func defaultClasses() []session.ClassConfig {
	return session.NewScrapeConfiguration().ClassList()
}

func TestRunDownloadsEachClassIntoItsFolder(t *testing.T) {
	srv := imageServer(t)
	src := &stubSource{results: map[string][]search.Candidate{
		"cat": {{URL: srv.URL + "/cat-a"}, {URL: ""}, {URL: srv.URL + "/cat-b"}},
		"dog": {{URL: srv.URL + "/dog-a"}},
	}}
	s, root := newTestScraper(t, src)

	var (
		mu      sync.Mutex
		started []string
		done    []downloader.BatchResult
		logs    []string
		last    = map[string]float64{}
	)
	report, err := s.Run(context.Background(), defaultClasses(), Hooks{
		OnClassStart: func(i, total int, c session.ClassConfig) {
			assert.Equal(t, 2, total)
			started = append(started, fmt.Sprintf("%d:%s", i, c.Name))
		},
		OnLog: func(c session.ClassConfig, msg string) {
			mu.Lock()
			logs = append(logs, msg)
			mu.Unlock()
		},
		OnProgress: func(c session.ClassConfig, ratio float64) {
			mu.Lock()
			last[c.Folder] = ratio
			mu.Unlock()
		},
		OnClassDone: func(c session.ClassConfig, r downloader.BatchResult) {
			done = append(done, r)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"0:Class 1", "1:Class 2"}, started)
	assert.Equal(t, []string{"cat", "dog"}, src.queries, "classes run in order")
	require.Len(t, done, 2)
	assert.Equal(t, 2, done[0].Saved, "the empty URL is dropped before counting")
	assert.Equal(t, 1, done[1].Saved)
	assert.Equal(t, 1.0, last["cat"])
	assert.Equal(t, 1.0, last["dog"])
	assert.Len(t, logs, 3)

	cats, err := storage.ListFiles(filepath.Join(root, "cat"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.jpeg", "1.jpeg"}, cats)
	dogs, err := storage.ListFiles(filepath.Join(root, "dog"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.jpeg"}, dogs)

	body, err := os.ReadFile(filepath.Join(root, "cat", "1.jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/cat-b", string(body))

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, root, report.OutputDir)
	assert.Equal(t, 3, report.Written)
	saved, failed, skipped := report.Totals()
	assert.Equal(t, 3, saved)
	assert.Zero(t, failed)
	assert.Zero(t, skipped)
}

func TestRunContinuesAfterSearchFailure(t *testing.T) {
	srv := imageServer(t)
	src := &stubSource{
		results: map[string][]search.Candidate{"dog": {{URL: srv.URL + "/d"}}},
		errs:    map[string]error{"cat": stderrors.New("engine unavailable")},
	}
	s, root := newTestScraper(t, src)

	var logs []string
	report, err := s.Run(context.Background(), defaultClasses(), Hooks{
		OnLog: func(c session.ClassConfig, msg string) { logs = append(logs, c.Folder+": "+msg) },
	})
	require.NoError(t, err)
	require.Len(t, report.Classes, 2)

	assert.Error(t, report.Classes[0].SearchErr)
	assert.Zero(t, report.Classes[0].Result.Total)
	assert.Equal(t, 1, report.Classes[1].Result.Saved)
	require.NotEmpty(t, logs)
	assert.True(t, strings.HasPrefix(logs[0], "cat: Search for 'cat' failed"), logs[0])

	info, err := os.Stat(filepath.Join(root, "cat"))
	require.NoError(t, err, "the folder exists even without images")
	assert.True(t, info.IsDir())
}

func TestRunStopsWhenFolderCannotBeCreated(t *testing.T) {
	src := &stubSource{}
	s, root := newTestScraper(t, src)
	require.NoError(t, os.WriteFile(filepath.Join(root, "cat"), []byte("not a dir"), 0644))

	report, err := s.Run(context.Background(), defaultClasses(), Hooks{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Class 1")
	assert.Empty(t, report.Classes)
	assert.Empty(t, src.queries, "no search once the folder failed")
}

func TestRunHonoursCancellationBetweenClasses(t *testing.T) {
	src := &stubSource{}
	s, _ := newTestScraper(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	report, err := s.Run(ctx, defaultClasses(), Hooks{
		OnClassDone: func(session.ClassConfig, downloader.BatchResult) { cancel() },
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Classes, 1)
	assert.Equal(t, []string{"cat"}, src.queries)
}

func TestRunWithNoClasses(t *testing.T) {
	s, _ := newTestScraper(t, &stubSource{})
	report, err := s.Run(context.Background(), nil, Hooks{})
	require.NoError(t, err)
	assert.Empty(t, report.Classes)
}

func TestRunLogsOutputAndTimeout(t *testing.T) {
	srv := imageServer(t)
	root := filepath.Join(t.TempDir(), "out")
	store, err := storage.NewManager(root)
	require.NoError(t, err)
	dl := downloader.New(nil, store, downloader.Options{Timeout: 3 * time.Second, Logger: logger.NewNopLogger()})
	log := logger.NewTestLogger()
	src := &stubSource{results: map[string][]search.Candidate{"cat": {{URL: srv.URL + "/a"}}}}

	_, err = New(src, dl, store, log).Run(context.Background(), defaultClasses(), Hooks{})
	require.NoError(t, err)

	var started, finished map[string]interface{}
	for _, m := range log.GetMessagesByLevel("INFO") {
		switch m.Message {
		case "Scrape run started":
			started = m.Fields
		case "Scrape run finished":
			finished = m.Fields
		}
	}
	require.NotNil(t, started)
	require.NotNil(t, finished)
	assert.Equal(t, root, started["output_dir"])
	assert.Equal(t, 3*time.Second, started["batch_timeout"])
	assert.Equal(t, 1, finished["files_written"])
}
