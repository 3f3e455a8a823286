// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/ratelimit"
	"github.com/taibuivan/trailhead/internal/platform/sec"
)

func newExchange(method, target, body string) (*pipeline.Exchange, *httptest.ResponseRecorder) {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	request := httptest.NewRequest(method, target, reader)
	request.RemoteAddr = "10.0.0.1:1234"
	response := httptest.NewRecorder()
	return pipeline.NewExchange(response, request), response
}

/*
TestSecurityHeaders checks the headers and the production-only HSTS header.
*/
func TestSecurityHeaders(t *testing.T) {
	exchange, response := newExchange(http.MethodGet, "/", "")
	flow, err := middleware.SecurityHeaders(false)(exchange)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Next, flow)
	assert.Equal(t, "nosniff", response.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", response.Header().Get("X-Frame-Options"))
	assert.Empty(t, response.Header().Get("Strict-Transport-Security"))

	exchange, response = newExchange(http.MethodGet, "/", "")
	_, _ = middleware.SecurityHeaders(true)(exchange)
	assert.NotEmpty(t, response.Header().Get("Strict-Transport-Security"))
}

// failingLimiter simulates an unreachable backend.
type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis down")
}

/*
TestRateLimit verifies the per-IP budget and the fail-open path.
*/
func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stage := middleware.RateLimit(ratelimit.NewLocalLimiter(ctx, 2, time.Hour))

	for i := 0; i < 2; i++ {
		exchange, _ := newExchange(http.MethodGet, "/api/v1/tours", "")
		flow, err := stage(exchange)
		require.NoError(t, err)
		assert.Equal(t, pipeline.Next, flow)
	}

	exchange, response := newExchange(http.MethodGet, "/api/v1/tours", "")
	_, err := stage(exchange)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusTooManyRequests, appErr.HTTPStatus)
	assert.Equal(t, "1800", response.Header().Get("Retry-After"))

	// A different client is unaffected.
	other, _ := newExchange(http.MethodGet, "/api/v1/tours", "")
	other.Request.RemoteAddr = "10.0.0.2:1234"
	_, err = stage(other)
	assert.NoError(t, err)

	// Backend failures let traffic through.
	exchange, _ = newExchange(http.MethodGet, "/api/v1/tours", "")
	flow, err := middleware.RateLimit(failingLimiter{})(exchange)
	assert.NoError(t, err)
	assert.Equal(t, pipeline.Next, flow)
}

/*
TestParseBody covers the accepted and rejected body shapes.
*/
func TestParseBody(t *testing.T) {
	stage := middleware.ParseBody(64)

	t.Run("object", func(t *testing.T) {
		exchange, _ := newExchange(http.MethodPost, "/", `{"name":"Forest Hiker","price":397}`)
		flow, err := stage(exchange)
		require.NoError(t, err)
		assert.Equal(t, pipeline.Next, flow)
		assert.Equal(t, "Forest Hiker", exchange.Body["name"])
		assert.Equal(t, float64(397), exchange.Body["price"])
	})

	t.Run("empty", func(t *testing.T) {
		exchange, _ := newExchange(http.MethodPatch, "/", "")
		_, err := stage(exchange)
		require.NoError(t, err)
		assert.Empty(t, exchange.Body)
		assert.NotNil(t, exchange.Body)
	})

	t.Run("get_is_ignored", func(t *testing.T) {
		exchange, _ := newExchange(http.MethodGet, "/", `not json`)
		_, err := stage(exchange)
		assert.NoError(t, err)
	})

	rejected := map[string]string{
		"malformed": `{"name":`,
		"array":     `[1,2,3]`,
		"too_large": `{"description":"` + strings.Repeat("x", 100) + `"}`,
	}
	for name, body := range rejected {
		t.Run(name, func(t *testing.T) {
			exchange, _ := newExchange(http.MethodPost, "/", body)
			_, err := stage(exchange)
			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		})
	}
}

/*
TestSanitize covers operator-key stripping, HTML escaping and parameter pollution.
*/
func TestSanitize(t *testing.T) {
	exchange, _ := newExchange(http.MethodGet, "/?sort=price&sort=-duration&duration=5&duration=9", "")
	exchange.Body = map[string]any{
		"email":    map[string]any{"$gt": ""},
		"a.b":      1,
		"name":     `<script>alert("x")</script>`,
		"password": "pass1234",
		"tags":     []any{"<b>", map[string]any{"$ne": 1, "ok": "fine"}},
	}

	flow, err := middleware.Sanitize("duration")(exchange)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Next, flow)

	assert.Equal(t, map[string]any{}, exchange.Body["email"])
	assert.NotContains(t, exchange.Body, "a.b")
	assert.Equal(t, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;", exchange.Body["name"])
	assert.Equal(t, "pass1234", exchange.Body["password"])
	assert.Equal(t, []any{"&lt;b&gt;", map[string]any{"ok": "fine"}}, exchange.Body["tags"])

	assert.Equal(t, []string{"-duration"}, exchange.Query["sort"])
	assert.Equal(t, []string{"5", "9"}, exchange.Query["duration"])
}

/*
TestRestrictTo distinguishes unauthenticated from unauthorized callers.
*/
func TestRestrictTo(t *testing.T) {
	stage := middleware.RestrictTo(sec.RoleAdmin, sec.RoleLeadGuide)

	exchange, _ := newExchange(http.MethodDelete, "/", "")
	_, err := stage(exchange)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)

	exchange.Principal = &sec.Principal{ID: "u1", Role: sec.RoleUser}
	_, err = stage(exchange)
	assert.Equal(t, http.StatusForbidden, apperr.As(err).HTTPStatus)

	exchange.Principal = &sec.Principal{ID: "u2", Role: sec.RoleLeadGuide}
	flow, err := stage(exchange)
	assert.NoError(t, err)
	assert.Equal(t, pipeline.Next, flow)

	flow, err = middleware.RequireAuth()(exchange)
	assert.NoError(t, err)
	assert.Equal(t, pipeline.Next, flow)
}
