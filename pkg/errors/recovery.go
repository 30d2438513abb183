// Package errors provides comprehensive error handling utilities for weldsim.
//
// This file contains panic recovery utilities used at the inference and
// simulation boundaries: a panic inside a model is converted into a
// PredictionError carrying the panic value and stack trace, so a single bad
// request can never take the service down.

package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string

	// Cause is the error the function had already set when it panicked, if any.
	Cause error
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("panic in %s: %v (original error: %v)", e.Operation, e.PanicValue, e.Cause)
	}
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the error that was pending when the panic happened.
func (e *PanicError) Unwrap() error {
	return e.Cause
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("%s\nStack trace:\n%s", e.Error(), e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is used with defer to convert a panic into a PredictionError.
//
// Usage:
//
//	func (s *Service) Predict(ctx context.Context, raw RawInput) (res Result, err error) {
//	    defer errors.Recover(&err, "Service.Predict")
//	    ...
//	}
//
// If the function had already set err before panicking, the original error
// stays reachable through errors.Is / errors.As.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		panicErr.Cause = *err
		*err = NewPredictionError(operation, panicErr)
	}
}

// SafeExecute executes a function and recovers from any panic, converting it to an error.
//
// Example:
//
//	err := SafeExecute("forest.Fit", func() error {
//	    return forest.Fit(X, y)
//	})
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
