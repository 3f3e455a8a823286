// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/trailhead/internal/api"
	"github.com/taibuivan/trailhead/internal/core/booking"
	"github.com/taibuivan/trailhead/internal/core/review"
	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/config"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/docstore/docstoretest"
	"github.com/taibuivan/trailhead/internal/platform/mail"
	"github.com/taibuivan/trailhead/internal/platform/ratelimit"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/internal/users/account"
	"github.com/taibuivan/trailhead/internal/users/auth"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newServer wires every handler over in-memory stores. Session lookups are never
// reached because the requests below carry no token.
func newServer(t *testing.T, capacity int) (*api.Server, *docstoretest.Store) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{Environment: "development", ServerPort: "0", MaxBodyBytes: 1 << 14}
	tours := docstoretest.New(tour.Collection())
	reviews := docstoretest.New(review.Collection())
	users := docstoretest.New(account.Collection())
	bookings := docstoretest.New(booking.Collection())

	sessions := auth.NewService(nil, nil, sec.NewHasher(4), mail.NewLogSender(discard, "test@trailhead.app"))
	protect := sessions.Protect()

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{}, discard)
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(sessions, auth.CookiePolicy{TTL: time.Hour}, "https://trailhead.app"),
		Account:   account.NewHandler(account.NewService(users), protect),
		Tour:      tour.NewHandler(tour.Public(tours), nil, sessions),
		Review:    review.NewHandler(reviews, review.NewRatings(reviews, tours), protect),
		Booking:   booking.NewHandler(bookings, protect),
	}

	limiter := ratelimit.NewLocalLimiter(ctx, capacity, time.Hour)
	return api.NewServer(cfg, discard, limiter, handlers), tours
}

func get(t *testing.T, handler http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	response := httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodGet, target, nil))

	var decoded map[string]any
	if response.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &decoded))
	}
	return response, decoded
}

/*
TestRouting checks that every route group is mounted behind the shared guards.
*/
func TestRouting(t *testing.T) {
	server, tours := newServer(t, 100)
	handler := server.Handler()

	seeded, err := tours.Insert(context.Background(), docstore.Document{
		tour.FieldName: "The Forest Hiker", tour.FieldSlug: "the-forest-hiker",
		tour.FieldDuration: int64(5), tour.FieldMaxGroupSize: int64(25), tour.FieldDifficulty: "easy",
		tour.FieldPrice: 397.0, tour.FieldRatingsAverage: 4.7, tour.FieldRatingsCount: int64(0),
		tour.FieldSummary: "Breathtaking hike", tour.FieldImageCover: "cover.jpg",
		tour.FieldSecretTour: false,
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantMsg    string
	}{
		{"tours_public", "/api/v1/tours", http.StatusOK, ""},
		{"nested_reviews_protected", "/api/v1/tours/" + seeded.ID() + "/reviews", http.StatusUnauthorized, "You are not logged in! Please log in to get access."},
		{"reviews_protected", "/api/v1/reviews", http.StatusUnauthorized, ""},
		{"bookings_protected", "/api/v1/bookings", http.StatusUnauthorized, ""},
		{"me_protected", "/api/v1/users/me", http.StatusUnauthorized, ""},
		{"unknown_route", "/api/v1/nowhere", http.StatusNotFound, "Can't find /api/v1/nowhere on this server!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, payload := get(t, handler, tt.target)
			require.Equal(t, tt.wantStatus, response.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, payload["message"])
			}
			if tt.wantStatus >= http.StatusBadRequest {
				assert.Equal(t, "fail", payload["status"])
			}
		})
	}

	response, payload := get(t, handler, "/api/v1/tours")
	assert.Equal(t, "nosniff", response.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, response.Header().Get("X-Request-ID"))
	assert.EqualValues(t, 1, payload["results"])

	response = httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodPut, "/api/v1/tours", nil))
	assert.Equal(t, http.StatusNotFound, response.Code)
}

/*
TestStageErrors checks that failures raised inside the shared chain and inside a
terminal handler both reach the error envelope.
*/
func TestStageErrors(t *testing.T) {
	server, _ := newServer(t, 100)
	handler := server.Handler()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed_json", `{"email":`, "Invalid JSON payload"},
		{"not_an_object", `["walker@example.com"]`, "Request body must be a JSON object"},
		{"missing_credentials", `{}`, "Please provide email and password!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(tt.body))
			request.Header.Set("Content-Type", "application/json")
			response := httptest.NewRecorder()
			handler.ServeHTTP(response, request)

			require.Equal(t, http.StatusBadRequest, response.Code)
			var payload map[string]any
			require.NoError(t, json.Unmarshal(response.Body.Bytes(), &payload))
			assert.Equal(t, "fail", payload["status"])
			assert.Equal(t, tt.wantMsg, payload["message"])
		})
	}
}

/*
TestRateLimit verifies the global limiter rejects requests past the capacity.
*/
func TestRateLimit(t *testing.T) {
	server, _ := newServer(t, 2)
	handler := server.Handler()

	for range 2 {
		response, _ := get(t, handler, "/api/v1/tours")
		require.Equal(t, http.StatusOK, response.Code)
	}

	response, payload := get(t, handler, "/api/v1/tours")
	assert.Equal(t, http.StatusTooManyRequests, response.Code)
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", payload["message"])
	assert.NotEmpty(t, response.Header().Get("Retry-After"))
}

/*
TestHealth covers the liveness and readiness checks.
*/
func TestHealth(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		deps       api.HealthDependencies
		wantStatus int
		wantState  string
		wantChecks int
	}{
		{"all_ready", api.HealthDependencies{CheckDatabase: healthy, CheckCache: healthy}, http.StatusOK, "ready", 2},
		{"cache_not_configured", api.HealthDependencies{CheckDatabase: healthy}, http.StatusOK, "ready", 1},
		{"database_down", api.HealthDependencies{CheckDatabase: broken, CheckCache: healthy}, http.StatusServiceUnavailable, "degraded", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			liveness, readiness := api.NewHealthHandlers(tt.deps, discard)

			response, _ := get(t, liveness, "/health")
			assert.Equal(t, http.StatusOK, response.Code)

			response, payload := get(t, readiness, "/ready")
			require.Equal(t, tt.wantStatus, response.Code)
			assert.Equal(t, tt.wantState, payload["status"])
			assert.Len(t, payload["checks"], tt.wantChecks)
		})
	}
}
