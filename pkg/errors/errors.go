// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Adjutant.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Adjutant errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeDependencyMissing indicates an optional library, credential, or
	// client required by a capability unit is absent. The unit is demoted
	// to degraded, never failed outright.
	CodeDependencyMissing ErrorCode = "DEPENDENCY_MISSING"

	// CodeUnitLoadFailed indicates a capability unit's construction failed.
	// The unit becomes unavailable; the error is recorded, not propagated.
	CodeUnitLoadFailed ErrorCode = "UNIT_LOAD_FAILED"

	// CodeMemberFailed indicates a stage member's invocation failed at run
	// time. Contained to that member's result within its stage.
	CodeMemberFailed ErrorCode = "MEMBER_FAILED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodePersistence indicates the notification store could not durably
	// commit a write. This class propagates as a hard failure.
	CodePersistence ErrorCode = "PERSISTENCE_FAILURE"
)

// AdjutantError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type AdjutantError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
	StatusCode  int // For transport responses
}

// Error implements the error interface.
func (e *AdjutantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *AdjutantError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *AdjutantError) MarshalJSON() ([]byte, error) {
	type Alias AdjutantError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new AdjutantError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *AdjutantError {
	return &AdjutantError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *AdjutantError) WithContext(key string, value interface{}) *AdjutantError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *AdjutantError) WithAttribute(key, value string) *AdjutantError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *AdjutantError) WithRecoverable(recoverable bool) *AdjutantError {
	e.Recoverable = recoverable
	return e
}

// AsAdjutantError attempts to convert an error to an AdjutantError.
// Returns the error as AdjutantError if it is one, or wraps it otherwise.
func AsAdjutantError(err error) *AdjutantError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AdjutantError); ok {
		return ae
	}
	// Wrap unknown error as internal
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *AdjutantError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeToStatusCode maps error codes to HTTP-ish status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404 // NOT_FOUND
	case CodeInvalidInput:
		return 400 // INVALID_ARGUMENT
	case CodeTimeout:
		return 408 // DEADLINE_EXCEEDED
	case CodeDependencyMissing:
		return 503 // UNAVAILABLE
	default:
		return 500 // INTERNAL
	}
}
