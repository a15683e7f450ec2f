// Package errors provides coded errors for itemcloud.
//
// Fatal conditions (bad configuration, no items, a canvas too small for the
// first items) are reported as *Error values carrying a Code so callers can
// branch on the category without matching message text:
//
//	err := errors.New(errors.ErrCodeNoItems, "need at least 1 item, got %d", n)
//	if errors.Is(err, errors.ErrCodeNoItems) {
//	    // ...
//	}
//
// Per-item placement failures are not errors; they are counted by the
// generator and logged.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Configuration and input errors
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeNoItems           Code = "NO_ITEMS"
	ErrCodeExpansionWithMask Code = "EXPANSION_WITH_MASK"
	ErrCodeFileNotFound      Code = "FILE_NOT_FOUND"

	// Placement errors
	ErrCodeCanvasTooSmall Code = "CANVAS_TOO_SMALL"
	ErrCodeOutOfBounds    Code = "OUT_OF_BOUNDS"
	ErrCodeEmptyMask      Code = "EMPTY_MASK"

	// Layout errors
	ErrCodeInvalidLayout          Code = "INVALID_LAYOUT"
	ErrCodeReconstructionMismatch Code = "RECONSTRUCTION_MISMATCH"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix for *Error values
// and the plain error string otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
