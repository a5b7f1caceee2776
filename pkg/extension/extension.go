// Package extension decides which file extension a downloaded image is
// stored under.
package extension

import (
	"net/url"
	"path"
	"strings"

	"tmscraper/pkg/errors"
)

var (
	// ErrNotAnImage matches any error for a declared content type that is
	// not image/*.
	ErrNotAnImage = &errors.Error{Type: errors.ErrorTypeNotAnImage}
	// ErrNoExtension matches any error for a response whose extension
	// could not be determined.
	ErrNoExtension = &errors.Error{Type: errors.ErrorTypeNoExtension}
)

// junk characters a malformed URL may leave after the extension
const urlTrailers = "?#&;,"

// Resolve returns the extension (without a leading dot) for a response
// with the given Content-Type header and source URL. An empty contentType
// is treated as absent, in which case the URL path is used.
func Resolve(contentType, sourceURL string) (string, error) {
	if strings.TrimSpace(contentType) != "" {
		return fromContentType(contentType)
	}
	return fromURL(sourceURL)
}

func fromContentType(contentType string) (string, error) {
	major, minor, _ := strings.Cut(contentType, "/")
	if !strings.EqualFold(strings.TrimSpace(major), "image") {
		return "", errors.Newf(errors.ErrorTypeNotAnImage, "content type %q is not an image", contentType)
	}

	minor, _, _ = strings.Cut(minor, "/")
	minor, _, _ = strings.Cut(minor, ";")
	minor = strings.ToLower(strings.TrimSpace(minor))
	if minor == "" || !safe(minor) {
		return "", errors.Newf(errors.ErrorTypeNoExtension, "content type %q has no usable subtype", contentType)
	}
	return minor, nil
}

// safe reports whether ext can be used as a file name suffix without
// leaving the destination directory
func safe(ext string) bool {
	return !strings.ContainsAny(ext, `/\`) && !strings.Contains(ext, "..")
}

func fromURL(sourceURL string) (string, error) {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	ext := strings.TrimPrefix(path.Ext(p), ".")
	if i := strings.IndexAny(ext, urlTrailers); i >= 0 {
		ext = ext[:i]
	}
	ext = strings.ToLower(strings.TrimSpace(ext))

	if ext == "" || !safe(ext) {
		return "", errors.Newf(errors.ErrorTypeNoExtension, "no extension in %q", sourceURL)
	}
	return ext, nil
}
