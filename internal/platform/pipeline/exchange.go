// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/trailhead/internal/platform/ctxutil"
	"github.com/taibuivan/trailhead/internal/platform/sec"
)

// Exchange is the mutable per-request context shared by every stage of a [Chain].
//
// # Concurrency
//
// An Exchange belongs to a single request and is never shared between goroutines.
type Exchange struct {
	// Writer is the response writer. Stages that write a response return [Halt].
	Writer http.ResponseWriter
	// Request is the inbound request. [Exchange.Authenticate] replaces it with a
	// copy whose context carries the principal.
	Request *http.Request
	// RequestTime is when the chain started processing the request.
	RequestTime time.Time
	// Query is a working copy of the URL query. Stages may rewrite it.
	Query url.Values
	// Body is the decoded JSON object body, or nil before the body stage runs.
	Body map[string]any
	// Principal is the authenticated identity, or nil for anonymous requests.
	Principal *sec.Principal

	values  map[string]any
	tracker *trackingWriter
}

// NewExchange prepares an exchange for one request.
func NewExchange(writer http.ResponseWriter, request *http.Request) *Exchange {
	tracker := &trackingWriter{ResponseWriter: writer}
	return &Exchange{
		Writer:      tracker,
		Request:     request,
		RequestTime: time.Now(),
		Query:       request.URL.Query(),
		tracker:     tracker,
	}
}

// Context returns the request context.
func (exchange *Exchange) Context() context.Context {
	return exchange.Request.Context()
}

// Logger returns the request-scoped logger.
func (exchange *Exchange) Logger() *slog.Logger {
	return ctxutil.GetLogger(exchange.Request.Context())
}

// Param returns a named URL path parameter.
func (exchange *Exchange) Param(name string) string {
	return chi.URLParam(exchange.Request, name)
}

// Authenticate attaches principal to the exchange and to the request context.
func (exchange *Exchange) Authenticate(principal *sec.Principal) {
	exchange.Principal = principal
	exchange.Request = exchange.Request.WithContext(ctxutil.WithPrincipal(exchange.Request.Context(), principal))
}

// Set stores a value for later stages.
func (exchange *Exchange) Set(key string, value any) {
	if exchange.values == nil {
		exchange.values = make(map[string]any)
	}
	exchange.values[key] = value
}

// Get retrieves a value stored by an earlier stage.
func (exchange *Exchange) Get(key string) (any, bool) {
	value, ok := exchange.values[key]
	return value, ok
}

// Responded reports whether a response status has already been written.
func (exchange *Exchange) Responded() bool {
	return exchange.tracker != nil && exchange.tracker.wrote
}

// trackingWriter records whether the response has started.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (writer *trackingWriter) WriteHeader(code int) {
	writer.wrote = true
	writer.ResponseWriter.WriteHeader(code)
}

func (writer *trackingWriter) Write(data []byte) (int, error) {
	writer.wrote = true
	return writer.ResponseWriter.Write(data)
}

// Unwrap exposes the underlying writer to [http.ResponseController].
func (writer *trackingWriter) Unwrap() http.ResponseWriter {
	return writer.ResponseWriter
}
