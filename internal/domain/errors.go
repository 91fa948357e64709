package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error") // 400
	ErrNotFound   = errors.New("not found")        // 404
	ErrConflict   = errors.New("conflict")         // 409

	ErrPartNotFound    = fmt.Errorf("part %w", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("part request %w", ErrNotFound)
	ErrQuoteNotFound   = fmt.Errorf("part quote %w", ErrNotFound)
)

// ValidationError carries a caller-facing reason and matches ErrValidation.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string        { return "validation error: " + e.Reason }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError carries a caller-facing reason and matches ErrConflict.
type ConflictError struct{ Reason string }

func (e *ConflictError) Error() string        { return "conflict: " + e.Reason }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func Invalid(reason string) error { return &ValidationError{Reason: reason} }

func Conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}
