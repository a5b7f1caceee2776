package scraper

import (
	"context"
	"time"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/search"
)

// BatchDownloader fetches one class worth of candidates
type BatchDownloader interface {
	DownloadAll(ctx context.Context, candidates []search.Candidate, destDir string, onLog downloader.LogFunc, onProgress downloader.ProgressFunc) downloader.BatchResult
	Timeout() time.Duration
}

// FolderProvider resolves and creates class folders under the output root
type FolderProvider interface {
	ClassDir(folder string) (string, error)
	BaseDir() string
	WrittenCount() int
}
