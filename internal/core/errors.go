package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrConversionUnavailable = errors.New("conversion unavailable")
	ErrImportRow             = errors.New("import row rejected")
	ErrNotFound              = errors.New("not found")
)

// ValidationError reports a rejected input field. It is returned before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConversionError reports that no rate could be obtained for a currency pair.
type ConversionError struct {
	From   string
	To     string
	Reason error
}

func (e *ConversionError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("conversion %s->%s unavailable: %v", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("conversion %s->%s unavailable", e.From, e.To)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversionUnavailable
}

func (e *ConversionError) Unwrap() error {
	return e.Reason
}

// ImportRowError wraps the reason a single bulk row was skipped.
// Line is 1-based in the source (0 when the row did not come from a file).
type ImportRowError struct {
	Line int
	Err  error
}

func (e *ImportRowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ImportRowError) Is(target error) bool {
	return target == ErrImportRow
}

func (e *ImportRowError) Unwrap() error {
	return e.Err
}
