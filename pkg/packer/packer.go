package packer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"tmscraper/pkg/config"
	"tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/session"
	"tmscraper/pkg/storage"
)

const (
	DefaultSize    = 224
	DefaultQuality = 92

	// ManifestName is written at the archive root
	ManifestName = "manifest.json"
	// ArchiveExt is appended to archive paths
	ArchiveExt = ".tm"

	stagingPattern = "tm-scraper-"
	nameSeparator  = "-!-"
)

// Options tunes preprocessing
type Options struct {
	// Size is the side of the square output images
	Size int
	// Quality is the JPEG quality, 1 to 100
	Quality int
	// Flip mirrors every image horizontally
	Flip bool
	// StagingParent holds the staging directory; empty means os.TempDir
	StagingParent string
	Logger        logger.Logger
}

// OptionsFromConfig maps the pack settings onto Options
func OptionsFromConfig(cfg config.PackConfig, log logger.Logger) Options {
	return Options{
		Size:          cfg.ImageSize,
		Quality:       cfg.JPEGQuality,
		Flip:          cfg.Flip,
		StagingParent: cfg.StagingDir,
		Logger:        log,
	}
}

// Result counts what Pack did
type Result struct {
	// Total is the number of files found in the class folders
	Total   int
	Written int
	Skipped int
}

// Packer stages and archives one scrape
type Packer struct {
	scrape   *session.ScrapeConfiguration
	manifest *session.ManifestConfiguration
	opts     Options
	staging  string
	logger   logger.Logger

	mu       sync.Mutex
	disposed bool
}

type workItem struct {
	from string
	to   string
}

// New creates a Packer and its staging directory
func New(scrape *session.ScrapeConfiguration, manifest *session.ManifestConfiguration, opts Options) (*Packer, error) {
	if scrape == nil || manifest == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "scrape and manifest configurations are required")
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	staging, err := os.MkdirTemp(opts.StagingParent, stagingPattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, err, "create staging directory")
	}

	return &Packer{
		scrape:   scrape,
		manifest: manifest,
		opts:     opts,
		staging:  staging,
		logger:   opts.Logger.WithField("component", "packer"),
	}, nil
}

// StagingDir returns the staging directory path
func (p *Packer) StagingDir() string {
	return p.staging
}

// Pack stages every image found under sourceRoot/<folder> for each class.
// onProgress receives processed/total after each file, skipped ones
// included. Undecodable files are reported through onLog and skipped;
// failing to write into the staging directory aborts.
func (p *Packer) Pack(ctx context.Context, sourceRoot string, onProgress func(ratio float64), onLog func(message string)) (Result, error) {
	logLine := func(msg string) {
		if onLog != nil {
			onLog(msg)
		}
	}

	items := p.workList(sourceRoot, logLine)
	res := Result{Total: len(items)}

	p.logger.InfoWithFields("Packing started", map[string]interface{}{
		"source":  sourceRoot,
		"staging": p.staging,
		"files":   len(items),
		"size":    p.opts.Size,
	})

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := p.stage(item); err != nil {
			if errors.IsType(err, errors.ErrorTypeDecode) {
				p.logger.WithError(err).WithField("file", item.from).Debug("Skipping undecodable file")
				logLine(fmt.Sprintf("Could not load image %s", item.from))
				res.Skipped++
			} else {
				return res, fmt.Errorf("failed to stage %s: %w", item.from, err)
			}
		} else {
			res.Written++
		}

		logger.LogPackProgress(p.logger, i+1, len(items))
		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(items)))
		}
	}

	if err := p.writeManifest(); err != nil {
		return res, err
	}

	p.logger.InfoWithFields("Packing completed", map[string]interface{}{
		"written": res.Written,
		"skipped": res.Skipped,
	})
	return res, nil
}

// workList enumerates class folders in class order and files by name
func (p *Packer) workList(sourceRoot string, logLine func(string)) []workItem {
	var items []workItem
	for _, class := range p.scrape.Classes {
		dir := filepath.Join(sourceRoot, class.Folder)
		files, err := storage.ListFiles(dir)
		if err != nil {
			p.logger.WithError(err).WithField("dir", dir).Warn("Class folder unreadable")
			logLine(fmt.Sprintf("Could not read folder %s", dir))
			continue
		}
		for index, name := range files {
			items = append(items, workItem{
				from: filepath.Join(dir, name),
				to:   filepath.Join(p.staging, StagedName(class.Name, index)),
			})
		}
	}
	return items
}

// StagedName is the archive entry name for the index-th file of a class
func StagedName(className string, index int) string {
	return fmt.Sprintf("%s%s%d.jpg", className, nameSeparator, index)
}

func (p *Packer) stage(item workItem) error {
	f, err := os.Open(item.from)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeDecode, err, "open image")
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return errors.Wrap(errors.ErrorTypeDecode, err, "decode image")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return errors.New(errors.ErrorTypeDecode, "image has no pixels")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, CropTo(img, p.opts.Size, p.opts.Flip), &jpeg.Options{Quality: p.opts.Quality}); err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "encode jpeg")
	}
	if err := os.WriteFile(item.to, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "write staged image")
	}
	return nil
}

func (p *Packer) writeManifest() error {
	data, err := json.Marshal(p.manifest)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "encode manifest")
	}
	if err := os.WriteFile(filepath.Join(p.staging, ManifestName), data, 0644); err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "write manifest")
	}
	return nil
}

// ArchivePath returns base with ArchiveExt appended unless already present
func ArchivePath(base string) string {
	if strings.HasSuffix(strings.ToLower(base), ArchiveExt) {
		return base
	}
	return base + ArchiveExt
}

// Dispose removes the staging directory. Later calls do nothing.
func (p *Packer) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil
	}
	p.disposed = true
	if err := os.RemoveAll(p.staging); err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "remove staging directory")
	}
	return nil
}

// Run packs sourceRoot into the archive ArchivePath(out) and removes the
// staging directory afterwards. It returns the archive path.
func Run(ctx context.Context, scrape *session.ScrapeConfiguration, manifest *session.ManifestConfiguration, opts Options, sourceRoot, out string, onProgress func(ratio float64), onLog func(message string)) (string, Result, error) {
	p, err := New(scrape, manifest, opts)
	if err != nil {
		return "", Result{}, err
	}
	defer func() {
		if derr := p.Dispose(); derr != nil {
			p.logger.WithError(derr).Warn("failed to remove staging directory")
		}
	}()

	res, err := p.Pack(ctx, sourceRoot, onProgress, onLog)
	if err != nil {
		return "", res, err
	}

	path := ArchivePath(out)
	if err := p.ArchiveTo(path); err != nil {
		return "", res, err
	}
	return path, res, nil
}
