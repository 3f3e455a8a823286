// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error taxonomy for Trailhead.

It provides a rich error type that bridges low-level domain and storage errors
and the uniform HTTP failure envelope.

Architecture:

  - AppError: A machine-readable Code, a client-safe Message and the HTTP status.
  - Operational: Marks expected failures (bad input, missing records, mail outages)
    whose message may always reach the client. Non-operational errors are bugs or
    infrastructure faults and are masked outside verbose mode.
  - Mapping: Every kind owns exactly one HTTP status code.

Every error that leaves the service layer should be an [AppError] or wrap one.
Anything else is rendered as an internal error.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Machine-readable error codes.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeDelivery     = "DELIVERY_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the Trailhead API.
//
// # Security
//
// The Cause field is for server-side logging only. It is rendered to clients
// exclusively in verbose (development) mode.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string
	// Message is a human-readable description safe to return to the client.
	Message string
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int
	// Operational is true for anticipated failures that may be shown verbatim.
	Operational bool
	// Cause is the underlying error, used for server-side logging.
	Cause error
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError
	// Stack is the goroutine trace captured by [Internal]. Verbose mode renders it.
	Stack string
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of the error carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] with the given message.
//
// Example:
//
//	apperr.NotFound("No document found with that ID")
func NotFound(msg string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     msg,
		HTTPStatus:  http.StatusNotFound,
		Operational: true,
	}
}

// Unauthorized creates a 401 [AppError] for missing or rejected credentials.
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:        CodeUnauthorized,
		Message:     msg,
		HTTPStatus:  http.StatusUnauthorized,
		Operational: true,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:        CodeForbidden,
		Message:     msg,
		HTTPStatus:  http.StatusForbidden,
		Operational: true,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:        CodeConflict,
		Message:     msg,
		HTTPStatus:  http.StatusConflict,
		Operational: true,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		HTTPStatus:  http.StatusBadRequest,
		Operational: true,
		Details:     details,
	}
}

// BadRequest is a [ValidationError] without field details.
func BadRequest(msg string) *AppError {
	return ValidationError(msg)
}

// InvalidToken creates the 400 [AppError] returned for unusable reset tokens.
func InvalidToken() *AppError {
	return ValidationError("Token is invalid or has expired")
}

// RateLimited creates a 429 [AppError].
func RateLimited(msg string) *AppError {
	return &AppError{
		Code:        CodeRateLimited,
		Message:     msg,
		HTTPStatus:  http.StatusTooManyRequests,
		Operational: true,
	}
}

// # Server Errors (5xx)

// Delivery creates an operational 500 [AppError] for outbound message failures.
// The message is shown to the client; the cause is logged.
func Delivery(msg string, cause error) *AppError {
	return &AppError{
		Code:        CodeDelivery,
		Message:     msg,
		HTTPStatus:  http.StatusInternalServerError,
		Operational: true,
		Cause:       cause,
	}
}

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client in production.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
		Stack:      string(debug.Stack()),
	}
}

// Internalf is [Internal] with a formatted cause.
func Internalf(format string, args ...any) *AppError {
	return Internal(fmt.Errorf(format, args...))
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsNotFound reports whether err is a NOT_FOUND [AppError].
func IsNotFound(err error) bool {
	appErr := As(err)
	return appErr != nil && appErr.Code == CodeNotFound
}
