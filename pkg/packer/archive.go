package packer

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"tmscraper/pkg/errors"
)

// ArchiveTo writes the staging directory as a store-only zip at path.
// Entry names are relative to the staging root with forward slashes; the
// root itself has no entry. It returns after the file is closed.
func (p *Packer) ArchiveTo(path string) (err error) {
	p.mu.Lock()
	disposed := p.disposed
	p.mu.Unlock()
	if disposed {
		return errors.New(errors.ErrorTypeValidation, "packer already disposed")
	}

	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "create archive")
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrorTypeIO, cerr, "close archive")
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(p.staging, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == p.staging {
			return nil
		}
		rel, err := filepath.Rel(p.staging, name)
		if err != nil {
			return err
		}
		return addEntry(zw, name, filepath.ToSlash(rel), d)
	})
	if walkErr != nil {
		zw.Close()
		return errors.Wrap(errors.ErrorTypeIO, walkErr, "write archive")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(errors.ErrorTypeIO, err, "finish archive")
	}

	p.logger.InfoWithFields("Archive written", map[string]interface{}{
		"path": path,
	})
	return nil
}

func addEntry(zw *zip.Writer, src, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Store

	if d.IsDir() {
		hdr.Name += "/"
		_, err := zw.CreateHeader(hdr)
		return err
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
