// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/constants"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/ratelimit"
)

// # Security Headers

// SecurityHeaders sets defensive response headers on every request.
// Strict-Transport-Security is only sent in production where TLS terminates upstream.
func SecurityHeaders(production bool) pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		header := exchange.Writer.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "DENY")
		header.Set("Referrer-Policy", "no-referrer")
		header.Set("X-DNS-Prefetch-Control", "off")
		header.Set("Cross-Origin-Resource-Policy", "same-origin")
		if production {
			header.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		return pipeline.Next, nil
	}
}

// # Rate Limiting

// RateLimit spends one token of the client IP's bucket per request.
//
// A limiter backend failure lets the request through and logs a warning, so a
// Redis outage degrades protection rather than availability.
func RateLimit(limiter ratelimit.Limiter) pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		clientIP := RealIP(exchange.Request)

		decision, err := limiter.Allow(exchange.Context(), "ip:"+clientIP)
		if err != nil {
			exchange.Logger().WarnContext(exchange.Context(), "rate_limiter_unavailable",
				slog.String("ip", clientIP),
				slog.Any("error", err),
			)
			return pipeline.Next, nil
		}

		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			exchange.Writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(seconds))
			return pipeline.Halt, apperr.RateLimited(constants.RateLimitMessage)
		}

		exchange.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		return pipeline.Next, nil
	}
}

// # Body Parsing

// ParseBody decodes a JSON object body into [pipeline.Exchange.Body].
//
// Only POST, PUT and PATCH bodies are read. An empty body yields an empty map.
// Bodies larger than maxBytes, malformed JSON and non-object JSON are rejected.
func ParseBody(maxBytes int64) pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		exchange.Body = map[string]any{}

		switch exchange.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			return pipeline.Next, nil
		}

		if exchange.Request.Body == nil {
			return pipeline.Next, nil
		}

		raw, err := io.ReadAll(http.MaxBytesReader(exchange.Writer, exchange.Request.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return pipeline.Halt, apperr.ValidationError("Request body is too large")
			}
			return pipeline.Halt, apperr.ValidationError("Could not read request body")
		}

		if len(bytes.TrimSpace(raw)) == 0 {
			return pipeline.Next, nil
		}

		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return pipeline.Halt, apperr.ValidationError("Invalid JSON payload")
		}

		object, ok := decoded.(map[string]any)
		if !ok {
			return pipeline.Halt, apperr.ValidationError("Request body must be a JSON object")
		}

		exchange.Body = object
		return pipeline.Next, nil
	}
}

// # Sanitizing

// Sanitize scrubs the parsed body and the query string.
//
// Body: keys starting with '$' or containing '.' are dropped at every depth and
// string values are HTML-escaped.
// Query: repeated parameters collapse to their last value unless whitelisted.
func Sanitize(whitelist ...string) pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		if exchange.Body != nil {
			exchange.Body = sanitizeObject(exchange.Body)
		}

		for key, values := range exchange.Query {
			if len(values) > 1 && !slices.Contains(whitelist, key) {
				exchange.Query[key] = values[len(values)-1:]
			}
		}

		return pipeline.Next, nil
	}
}

// sanitizeObject returns a scrubbed copy of object.
func sanitizeObject(object map[string]any) map[string]any {
	clean := make(map[string]any, len(object))
	for key, value := range object {
		if strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
			continue
		}
		clean[key] = sanitizeValue(value)
	}
	return clean
}

// sanitizeValue scrubs a single decoded JSON value.
func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case string:
		return html.EscapeString(typed)
	case map[string]any:
		return sanitizeObject(typed)
	case []any:
		clean := make([]any, len(typed))
		for i, item := range typed {
			clean[i] = sanitizeValue(item)
		}
		return clean
	default:
		return typed
	}
}
