// Package errors provides structured error handling for colisflow.
// Errors carry codes so callers can route on failure class without
// string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies an error for programmatic handling.
type Code string

const (
	// Extract errors (1xx): the uploaded file is unusable. Surfaced to the
	// operator as "wrong format, re-upload"; never retried automatically.
	CodeMissingColumn Code = "E101"
	CodeNoRows        Code = "E102"
	CodeBadTotal      Code = "E103"
	CodeDateMismatch  Code = "E104"
	CodeBadWorkbook   Code = "E105"

	// Soft conditions (2xx): expected, deferral not failure.
	CodeSiblingNotAvailable Code = "E201"

	// Store errors (3xx): propagate, never shown raw to the operator.
	CodeStoreWrite  Code = "E301"
	CodeStoreQuery  Code = "E302"
	CodeStoreCommit Code = "E303"

	// Blob errors (4xx).
	CodeBlobNotFound Code = "E401"
	CodeBlobIO       Code = "E402"

	// Submission errors (5xx): the request itself is invalid.
	CodeBadDate     Code = "E501"
	CodeUnknownType Code = "E502"

	CodeUnknown Code = "E999"
)

// Error is the base error type for all colisflow errors.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code when the target is also a *Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// --- Convenience constructors ---

// MissingColumn reports a required column absent from the source extract.
func MissingColumn(column string, available []string) *Error {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// NoRows reports that no rows survived normalization for a table that
// requires at least one.
func NoRows(table string) *Error {
	return New(CodeNoRows, "no rows survived normalization").
		WithContext("table", table)
}

// BadTotal reports a missing or non-numeric "Total" cell in an injection
// extract.
func BadTotal(sorter, value string) *Error {
	return New(CodeBadTotal, "total row is missing or not numeric").
		WithContext("sorter", sorter).
		WithContext("value", value)
}

// DateMismatch reports an extract whose content date disagrees with the
// date the operator submitted.
func DateMismatch(submitted, found string) *Error {
	return New(CodeDateMismatch, "extract content is for a different date").
		WithContext("submitted", submitted).
		WithContext("found", found)
}

// SiblingNotAvailable reports that the paired sorter file is not in blob
// storage yet. Callers defer, they do not fail.
func SiblingNotAvailable(path string) *Error {
	return New(CodeSiblingNotAvailable, "sibling extract not available").
		WithContext("path", path)
}

// BlobNotFound reports a missing object. Distinguishable from other blob
// failures so the orchestrator can treat it as "no data".
func BlobNotFound(path string) *Error {
	return New(CodeBlobNotFound, "object not found").
		WithContext("path", path)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsMalformedExtract reports whether the error means the uploaded file is
// unusable and the operator must re-upload.
func IsMalformedExtract(err error) bool {
	switch GetCode(err) {
	case CodeMissingColumn, CodeNoRows, CodeBadTotal, CodeDateMismatch, CodeBadWorkbook:
		return true
	default:
		return false
	}
}

// MultiError collects failures across the output tables of one submission.
// Partial multi-table writes are accepted, so the orchestrator reports all
// table failures rather than stopping at the first.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Combined returns nil if no errors, the single error if one, or the
// MultiError itself.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
