// Package errors defines the typed error kinds the core raises, per §7 of
// the specification: each carries enough context to log usefully and is
// classified by a string ErrorType so callers can branch on kind without
// type assertions.
package errors

import (
	"fmt"
	"time"
)

// ErrorType classifies an error for logging and status-line reporting.
type ErrorType string

const (
	ErrorTypeMalformedContainer ErrorType = "malformed_container"
	ErrorTypePlatformMissing    ErrorType = "platform_missing"
	ErrorTypeStoreUnavailable   ErrorType = "store_unavailable"
	ErrorTypeDuplicateReindex   ErrorType = "duplicate_reindex"
)

// ContainerError represents a failure decoding the .hbk block format or the
// ZIP substream carried inside it: an unparseable block header, a broken
// chain, truncation, or a cycle. The offending container is skipped by the
// indexing pipeline rather than aborting the whole run.
type ContainerError struct {
	Path       string
	Operation  string
	Offset     int64
	Underlying error
	Timestamp  time.Time
}

// NewContainerError creates a new malformed-container error with context.
func NewContainerError(op, path string, offset int64, err error) *ContainerError {
	return &ContainerError{
		Operation:  op,
		Path:       path,
		Offset:     offset,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ContainerError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s %s failed at offset %d: %v", e.Type(), e.Operation, e.Offset, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed for %s at offset %d: %v", e.Type(), e.Operation, e.Path, e.Offset, e.Underlying)
}

func (e *ContainerError) Unwrap() error { return e.Underlying }

// Type reports this error's classification, per §7.
func (e *ContainerError) Type() ErrorType { return ErrorTypeMalformedContainer }

// PlatformMissingError reports that platform discovery (C8) found no
// qualifying installation. Not fatal: the lifecycle controller still
// starts the RPC server so tool calls can report the situation.
type PlatformMissingError struct {
	Timestamp time.Time
}

// NewPlatformMissingError creates a new platform-missing error.
func NewPlatformMissingError() *PlatformMissingError {
	return &PlatformMissingError{Timestamp: time.Now()}
}

func (e *PlatformMissingError) Error() string {
	return "1C Platform not found in standard paths"
}

// Type reports this error's classification, per §7.
func (e *PlatformMissingError) Type() ErrorType { return ErrorTypePlatformMissing }

// StoreUnavailableError represents a failure to open or write the index
// store. Fatal for the current indexing run; the process stays alive to
// report status.
type StoreUnavailableError struct {
	Operation  string
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewStoreUnavailableError creates a new store-unavailable error.
func NewStoreUnavailableError(op, path string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{
		Operation:  op,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store %s failed for %s: %v", e.Type(), e.Operation, e.Path, e.Underlying)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Underlying }

// Type reports this error's classification, per §7.
func (e *StoreUnavailableError) Type() ErrorType { return ErrorTypeStoreUnavailable }

// DuplicateReindexError is the soft error returned when reindex_1c_help is
// invoked while an indexing run is already in flight.
type DuplicateReindexError struct{}

func (e *DuplicateReindexError) Error() string {
	return "indexing is already in progress"
}

// Type reports this error's classification, per §7.
func (e *DuplicateReindexError) Type() ErrorType { return ErrorTypeDuplicateReindex }

// MultiError aggregates independent per-container and per-page failures
// encountered during one indexing run without aborting the rest of it.
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping nil entries.
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

func (e *MultiError) Unwrap() []error { return e.Errors }
