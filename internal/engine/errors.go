package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes construction errors.
type ErrorCode string

const (
	// ErrCodeMissingInput indicates one of the four input signals is nil.
	ErrCodeMissingInput ErrorCode = "MISSING_INPUT"

	// ErrCodeMissingDependency indicates a collaborator is nil.
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
)

// Error is returned by New when the engine cannot be wired.
//
// Once an Engine exists no error escapes it: every failure of a
// collaborator is turned into a value on one of the output signals.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Name is the missing input or dependency, e.g. "Submits".
	Name string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingInput reports whether err is, or wraps, an ErrCodeMissingInput
// Error.
func IsMissingInput(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeMissingInput
	}
	return false
}

// IsMissingDependency reports whether err is, or wraps, an
// ErrCodeMissingDependency Error.
func IsMissingDependency(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeMissingDependency
	}
	return false
}

func missingInput(name string) *Error {
	return &Error{Code: ErrCodeMissingInput, Name: name, Message: "input signal is required"}
}

func missingDependency(name string) *Error {
	return &Error{Code: ErrCodeMissingDependency, Name: name, Message: "dependency is required"}
}
