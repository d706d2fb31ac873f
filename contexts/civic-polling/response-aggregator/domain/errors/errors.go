package errors

import "errors"

var (
	ErrNotFound          = errors.New("poll not found")
	ErrConflict          = errors.New("poll response conflict")
	ErrUnsupportedFormat = errors.New("unsupported report format")
	ErrMisconfigured     = errors.New("response aggregator is misconfigured")
)
