package session

import (
	"strings"
	"unicode"

	"tmscraper/pkg/errors"
)

const maxFilenameBytes = 255

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidateFilename reports whether s can be used as a single path element
// on every major platform.
func ValidateFilename(s string) error {
	switch {
	case s == "":
		return errors.New(errors.ErrorTypeValidation, "name must not be empty")
	case len(s) > maxFilenameBytes:
		return errors.Newf(errors.ErrorTypeValidation, "name is longer than %d bytes", maxFilenameBytes)
	case s == "." || s == "..":
		return errors.Newf(errors.ErrorTypeValidation, "%q is not a valid name", s)
	}

	for _, r := range s {
		if strings.ContainsRune(`<>:"/\|?*`, r) || unicode.IsControl(r) {
			return errors.Newf(errors.ErrorTypeValidation, "name %q contains the forbidden character %q", s, r)
		}
	}

	base, _, _ := strings.Cut(s, ".")
	if reservedNames[strings.ToUpper(strings.TrimRight(base, " "))] {
		return errors.Newf(errors.ErrorTypeValidation, "%q is a reserved device name", s)
	}
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, " ") {
		return errors.Newf(errors.ErrorTypeValidation, "name %q must not end with a dot or space", s)
	}
	return nil
}

// ValidateClassName checks a class name as a file name prefix, with spaces
// allowed. Staged archive entries use the name unchanged.
func ValidateClassName(name string) error {
	return ValidateFilename(strings.ReplaceAll(name, " ", "-"))
}

// ValidateQuery checks a search query
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return errors.New(errors.ErrorTypeValidation, "query must not be empty")
	}
	return nil
}
