package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyFragmentID   = errors.New("fragment ID cannot be empty")
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrInvalidRange      = errors.New("byte range start must be <= end and non-negative")
	ErrMissingSource     = errors.New("source document is required")
	ErrEmptySectionID    = errors.New("section ID cannot be empty")
	ErrEmptyThemeLabel   = errors.New("theme label cannot be empty")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)
