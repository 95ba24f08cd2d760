package ml

import (
	"errors"
	"fmt"
	"strings"

	"koi-classifier/internal/ingest"
)

// Sentinels for errors.Is matching on the typed training errors.
var (
	ErrEmptyInput       = ingest.ErrEmptyInput
	ErrMissingColumns   = errors.New("missing columns")
	ErrMissingLabel     = errors.New("missing label")
	ErrInsufficientData = errors.New("insufficient data")
)

// EmptyInputError is returned when the CSV has no header or no data lines.
type EmptyInputError = ingest.EmptyInputError

// MissingColumnsError names the required feature columns absent from a header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required feature columns: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// MissingLabelError is returned when no label or disposition column exists.
type MissingLabelError struct {
	Accepted []string
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("no label column found, expected one of: %s", strings.Join(e.Accepted, ", "))
}

func (e *MissingLabelError) Unwrap() error { return ErrMissingLabel }

// InsufficientDataError is returned when too few labeled rows survive parsing.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d labeled rows to train, got %d", e.Need, e.Have)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// ErrorKind returns the stable name of a training error, or "" when err is
// not one of them.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "EmptyInputError"
	case errors.Is(err, ErrMissingColumns):
		return "MissingColumnsError"
	case errors.Is(err, ErrMissingLabel):
		return "MissingLabelError"
	case errors.Is(err, ErrInsufficientData):
		return "InsufficientDataError"
	default:
		return ""
	}
}
