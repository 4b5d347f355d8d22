package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrConflict indicates an ETag-guarded write lost a concurrent race
	// and must be retried against a fresh read (spec.md §4.1, §7).
	ErrConflict = errors.New("etag conflict")

	// ErrSpamRejected indicates the fingerprint/spam filter rejected an
	// article before storage (spec.md §4.2). Not an error condition from
	// the caller's perspective; counted in metrics, never retried.
	ErrSpamRejected = errors.New("article rejected by spam filter")

	// ErrCategoryMismatch indicates an operation would add an article to a
	// cluster whose category it does not share (spec.md §7).
	ErrCategoryMismatch = errors.New("article category does not match cluster category")

	// ErrGenerationFailed indicates an LLM response failed to parse or fell
	// outside the prompt contract's bounds (spec.md §4.6, §7).
	ErrGenerationFailed = errors.New("summary generation failed")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
