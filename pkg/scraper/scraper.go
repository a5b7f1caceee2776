package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/search"
	"tmscraper/pkg/session"
	"tmscraper/pkg/storage"
)

// Hooks receive run events. Every field is optional. OnLog and OnProgress
// are never called concurrently with each other.
type Hooks struct {
	OnClassStart func(index, total int, class session.ClassConfig)
	OnLog        func(class session.ClassConfig, message string)
	OnProgress   func(class session.ClassConfig, ratio float64)
	OnClassDone  func(class session.ClassConfig, result downloader.BatchResult)
}

// ClassReport is the outcome of one class
type ClassReport struct {
	Class      session.ClassConfig
	Dir        string
	Candidates int
	// SearchErr is set when the source failed and nothing was downloaded
	SearchErr error
	Result    downloader.BatchResult
}

// Report summarises a run
type Report struct {
	RunID     string
	OutputDir string
	Classes   []ClassReport
	// Written counts files the output root received during the run
	Written  int
	Duration time.Duration
}

// Totals sums the per-class results
func (r *Report) Totals() (saved, failed, skipped int) {
	for _, c := range r.Classes {
		saved += c.Result.Saved
		failed += c.Result.Failed
		skipped += c.Result.Skipped
	}
	return saved, failed, skipped
}

// Scraper downloads images for each class in turn
type Scraper struct {
	source     search.Source
	downloader BatchDownloader
	folders    FolderProvider
	logger     logger.Logger
}

// New wires a Scraper from its collaborators
func New(source search.Source, dl BatchDownloader, folders FolderProvider, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		source:     source,
		downloader: dl,
		folders:    folders,
		logger:     log.WithField("component", "scraper"),
	}
}

// NewFromConfig builds the source, downloader and output root from cfg.
// The output root is created immediately.
func NewFromConfig(cfg *config.Config, keys auth.CredentialStore, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	source, err := search.NewSource(cfg, keys, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate source: %w", err)
	}

	dl := downloader.NewFromConfig(cfg.Download, store, log)
	return New(source, dl, store, log), nil
}

// Run scrapes classes in order. It returns early only when a class folder
// cannot be created or ctx is done between classes; the partial report is
// returned alongside the error.
func (s *Scraper) Run(ctx context.Context, classes []session.ClassConfig, hooks Hooks) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), OutputDir: s.folders.BaseDir()}
	log := s.logger.WithField("run_id", report.RunID)
	written := s.folders.WrittenCount()

	log.InfoWithFields("Scrape run started", map[string]interface{}{
		"classes":       len(classes),
		"engine":        s.source.Name(),
		"output_dir":    report.OutputDir,
		"batch_timeout": s.downloader.Timeout(),
	})

	defer func() {
		report.Written = s.folders.WrittenCount() - written
		report.Duration = time.Since(start)
	}()

	for i, class := range classes {
		if err := ctx.Err(); err != nil {
			log.WarnWithFields("Scrape run cancelled", map[string]interface{}{
				"completed": len(report.Classes),
			})
			return report, err
		}

		cr, err := s.runClass(ctx, log, i, len(classes), class, hooks)
		if err != nil {
			return report, err
		}
		report.Classes = append(report.Classes, cr)
	}

	saved, failed, skipped := report.Totals()
	log.InfoWithFields("Scrape run finished", map[string]interface{}{
		"saved":         saved,
		"failed":        failed,
		"skipped":       skipped,
		"files_written": s.folders.WrittenCount() - written,
		"duration":      time.Since(start),
	})
	return report, nil
}

func (s *Scraper) runClass(ctx context.Context, log logger.Logger, index, total int, class session.ClassConfig, hooks Hooks) (ClassReport, error) {
	cr := ClassReport{Class: class}
	log = log.WithFields(map[string]interface{}{
		"class":  class.Name,
		"folder": class.Folder,
	})

	if hooks.OnClassStart != nil {
		hooks.OnClassStart(index, total, class)
	}

	dir, err := s.folders.ClassDir(class.Folder)
	if err != nil {
		log.WithError(err).Error("Failed to create class folder")
		return cr, fmt.Errorf("class %q: %w", class.Name, err)
	}
	cr.Dir = dir

	onLog := func(msg string) {
		if hooks.OnLog != nil {
			hooks.OnLog(class, msg)
		}
	}

	candidates, err := s.source.Search(ctx, class.Query, 0)
	if err != nil {
		cr.SearchErr = err
		log.WithError(err).Warn("Search failed, class gets no images")
		onLog(fmt.Sprintf("Search for '%s' failed: %v", class.Query, err))
		candidates = nil
	}
	cr.Candidates = len(candidates)

	cr.Result = s.downloader.DownloadAll(ctx, candidates, dir, onLog, func(ratio float64) {
		if hooks.OnProgress != nil {
			hooks.OnProgress(class, ratio)
		}
	})

	logger.LogBatch(log, class.Name, cr.Result.Total, cr.Result.Saved, cr.Result.Failed, cr.Result.TimedOut, cr.Result.Duration)
	if hooks.OnClassDone != nil {
		hooks.OnClassDone(class, cr.Result)
	}
	return cr, nil
}
