// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Every response carries a "status" discriminator: "success" for 2xx,
// "fail" for client errors (4xx) and "error" for server errors (5xx).
// List responses additionally carry a "results" count.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/ctxutil"
	"github.com/taibuivan/trailhead/pkg/pagination"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// genericFailure is the only message clients see for non-operational errors
// outside verbose mode.
const genericFailure = "Something went very wrong!"

// SuccessEnvelope is the JSON envelope for successful responses.
type SuccessEnvelope struct {
	Status  string           `json:"status"`
	Results *int             `json:"results,omitempty"`
	Token   string           `json:"token,omitempty"`
	Message string           `json:"message,omitempty"`
	Data    any              `json:"data,omitempty"`
	Meta    *pagination.Meta `json:"meta,omitempty"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Status  string              `json:"status"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
	// Error carries the underlying cause in verbose mode only.
	Error string `json:"error,omitempty"`
	// Stack carries the captured trace in verbose mode only.
	Stack string `json:"stack,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Status: StatusSuccess, Data: data})
}

// Created writes a 201 Created response with data wrapped in the standard success envelope.
func Created(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Status: StatusSuccess, Data: data})
}

// List writes a 200 OK response carrying the item count, the items and, when
// known, the pagination metadata.
func List[T any](writer http.ResponseWriter, items []T, metadata *pagination.Meta) {
	if items == nil {
		items = []T{}
	}
	results := len(items)
	JSON(writer, http.StatusOK, SuccessEnvelope{
		Status:  StatusSuccess,
		Results: &results,
		Data:    items,
		Meta:    metadata,
	})
}

// Token writes a success envelope that carries a freshly issued session token.
func Token(writer http.ResponseWriter, statusCode int, token string, data any) {
	JSON(writer, statusCode, SuccessEnvelope{Status: StatusSuccess, Token: token, Data: data})
}

// Message writes a success envelope with a human-readable message and no data.
func Message(writer http.ResponseWriter, message string) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Status: StatusSuccess, Message: message})
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// # Error Rendering

// ErrorWriter renders errors into the failure envelope.
//
// In verbose mode every [apperr.AppError] is rendered with its own message and
// cause. Otherwise non-operational errors collapse into a generic message.
type ErrorWriter struct {
	Verbose bool
}

// Write converts any Go error into a standardized JSON API error response.
func (errorWriter ErrorWriter) Write(writer http.ResponseWriter, request *http.Request, err error) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	appError := apperr.As(err)
	if appError == nil {
		logger.ErrorContext(ctx, "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, appError.HTTPStatus, errorWriter.envelope(appError))
}

// envelope builds the failure body for the configured exposure level.
func (errorWriter ErrorWriter) envelope(appError *apperr.AppError) ErrorEnvelope {
	envelope := ErrorEnvelope{
		Status:  StatusFail,
		Code:    appError.Code,
		Message: appError.Message,
		Details: appError.Details,
	}
	if appError.HTTPStatus >= http.StatusInternalServerError {
		envelope.Status = StatusError
	}

	if errorWriter.Verbose {
		if appError.Cause != nil {
			envelope.Error = appError.Cause.Error()
		}
		envelope.Stack = appError.Stack
		return envelope
	}

	if !appError.Operational {
		envelope.Message = genericFailure
		envelope.Details = nil
	}
	return envelope
}

// Error renders err with the locked-down [ErrorWriter].
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	ErrorWriter{}.Write(writer, request, err)
}
