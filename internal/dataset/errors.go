package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDatasetFound means none of the primary candidate files exist.
	ErrNoDatasetFound = errors.New("no dataset found")

	// ErrMissingOptionalData means an optional supporting file is absent.
	// Callers degrade the feature that depends on it instead of failing.
	ErrMissingOptionalData = errors.New("optional data not available")
)

// LoadError reports a file that exists but cannot be parsed.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "load " + e.Path
	if e.Line > 0 {
		msg += fmt.Sprintf(": line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %s", e.Column)
	}
	return msg + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadErr(path string, line int, column string, err error) *LoadError {
	return &LoadError{Path: path, Line: line, Column: column, Err: err}
}

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
