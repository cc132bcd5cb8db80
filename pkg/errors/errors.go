// Package errors provides structured error types for layouttune.
//
// Every failure that can occur while evaluating a candidate carries a code so
// the search loop can tell which stage rejected it without string matching:
//   - PATCH_PATTERN_MISMATCH: a declaration was not found in the engine config
//   - BUILD_FAILED / RENDER_FAILED: an external process exited non-zero or timed out
//   - PARSE_FAILED: the rendering artifact could not be turned into geometry
//   - EMPTY_REFERENCE: the reference rendering has no labelled nodes (fatal)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "grid domain %q is empty", name)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBuildFailed, origErr, "cmake exited with %d", code)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Per-candidate failures, recoverable at the search loop boundary
	ErrCodePatchMismatch Code = "PATCH_PATTERN_MISMATCH"
	ErrCodeBuildFailed   Code = "BUILD_FAILED"
	ErrCodeRenderFailed  Code = "RENDER_FAILED"
	ErrCodeParseFailed   Code = "PARSE_FAILED"
	ErrCodeTimeout       Code = "TIMEOUT"

	// Fatal errors
	ErrCodeEmptyReference Code = "EMPTY_REFERENCE"
	ErrCodeInternal       Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// Only the outermost *Error in the chain is inspected; use [Has] to search
// the whole chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Has reports whether any *Error in the chain of err carries code.
// A render that timed out is RENDER_FAILED on the outside and TIMEOUT inside.
func Has(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ProcessError carries the diagnostics of a failed external process.
type ProcessError struct {
	Command  string // Command line as run
	ExitCode int    // -1 when the process did not exit normally
	Output   string // Captured diagnostics, possibly truncated
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: did not exit normally", e.Command)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
}
