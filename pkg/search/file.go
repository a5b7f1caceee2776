package search

import (
	"bufio"
	"context"
	"os"
	"strings"

	"tmscraper/pkg/errors"
)

// FileSource serves candidates from a plain text file. Each non-blank line
// that does not start with "#" is either a bare URL, offered for every
// query, or "query<TAB>url", offered only for that query. A tagged line
// with nothing after the tab yields a candidate without a URL.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path on every search
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns "file"
func (s *FileSource) Name() string { return "file" }

// Search returns the file's entries matching query, in file order
func (s *FileSource) Search(ctx context.Context, query string, max int) ([]Candidate, error) {
	if s.path == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "no urls file configured (search.urls_file)")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, err, "open urls file")
	}
	defer f.Close()

	var out []Candidate
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if q, u, tagged := strings.Cut(line, "\t"); tagged {
			if !strings.EqualFold(strings.TrimSpace(q), query) {
				continue
			}
			out = append(out, Candidate{URL: strings.TrimSpace(u)})
			continue
		}
		out = append(out, Candidate{URL: strings.TrimSpace(line)})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, err, "read urls file")
	}

	return limit(out, max), nil
}
