package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for ragstore.
type Error struct {
	// Code is the unique error code (e.g., "ERR_301_INDEX_NOT_READY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Input, Persistence, Index, Internal).
	Category Category

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// Category is derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotReady creates an index-not-ready error for the given index name.
func NotReady(index string) *Error {
	return New(ErrCodeIndexNotReady,
		fmt.Sprintf("index %s is empty, ingest documents first", index), nil).
		WithDetail("index", index)
}

// EmptyInput creates an empty-ingestion-input error.
func EmptyInput(message string) *Error {
	return New(ErrCodeEmptyInput, message, nil)
}

// PartialBulk creates a partial-bulk-failure error with counts.
func PartialBulk(succeeded, failed int) *Error {
	return New(ErrCodePartialBulk,
		fmt.Sprintf("bulk upsert partially failed: %d succeeded, %d failed", succeeded, failed), nil)
}

// MissingRecord creates a missing-status-record error for the given path.
func MissingRecord(path string) *Error {
	return New(ErrCodeMissingRecord,
		fmt.Sprintf("status record %s is missing", path), nil).
		WithDetail("path", path)
}

// PersistenceWrite wraps a failed status-record read-modify-write.
func PersistenceWrite(err error) *Error {
	return Wrap(ErrCodePersistenceWrite, err)
}

// Internal creates an internal error.
func Internal(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsNotReady reports whether err is (or wraps) an index-not-ready error.
// Callers use this to trigger ingestion before retrying a read.
func IsNotReady(err error) bool {
	return stderrors.Is(err, &Error{Code: ErrCodeIndexNotReady})
}

// CodeOf returns the error code of err, or ERR_500_INTERNAL for plain errors.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
