// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package review_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/trailhead/internal/core/review"
	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/docstore/docstoretest"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/resource"
	"github.com/taibuivan/trailhead/internal/platform/respond"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/internal/users/account"
	"github.com/taibuivan/trailhead/pkg/query"
)

type harness struct {
	reviews *docstoretest.Store
	tours   *docstoretest.Store
	users   *docstoretest.Store
	ratings *review.Ratings
	router  chi.Router
	caller  *sec.Principal
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		reviews: docstoretest.New(review.Collection(), docstoretest.WithUniqueTogether(review.FieldTour, review.FieldUser)),
		tours:   docstoretest.New(tour.Collection()),
		users:   docstoretest.New(account.Collection()),
	}
	h.ratings = review.NewRatings(h.reviews, h.tours)
	store := docstore.Populated(h.reviews,
		docstore.PopulateRefs(review.FieldUser, account.ActiveOnly(h.users), account.AuthorFields...))

	protect := func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		if h.caller != nil {
			exchange.Authenticate(h.caller)
		}
		return middleware.RequireAuth()(exchange)
	}
	base := pipeline.New(func(exchange *pipeline.Exchange, err error) {
		respond.Error(exchange.Writer, exchange.Request, err)
	}, middleware.ParseBody(1<<16))

	handler := review.NewHandler(store, h.ratings, protect)
	router := chi.NewRouter()
	router.Route("/reviews", func(r chi.Router) { handler.Register(r, base) })
	router.Route("/tours/{tourId}/reviews", func(r chi.Router) { handler.Register(r, base) })
	h.router = router
	return h
}

func (h *harness) do(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()

	request := httptest.NewRequest(method, target, strings.NewReader(body))
	response := httptest.NewRecorder()
	h.router.ServeHTTP(response, request)

	if response.Body.Len() == 0 {
		return response.Code, nil
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &decoded))
	return response.Code, decoded
}

func (h *harness) user(t *testing.T, name string, role sec.UserRole) *sec.Principal {
	t.Helper()
	document, err := h.users.Insert(context.Background(), docstore.Document{
		"name": name, "email": strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		"role": string(role), "photo": "default.jpg", "active": true,
	})
	require.NoError(t, err)
	return &sec.Principal{ID: document.ID(), Name: name, Role: role}
}

func (h *harness) tour(t *testing.T, name string, secret bool) string {
	t.Helper()
	document, err := h.tours.Insert(context.Background(), docstore.Document{
		tour.FieldName: name, tour.FieldPrice: 497.0, tour.FieldRatingsAverage: tour.DefaultRatingsAverage,
		tour.FieldRatingsCount: int64(0), tour.FieldSecretTour: secret,
	})
	require.NoError(t, err)
	return document.ID()
}

func (h *harness) summary(t *testing.T, tourID string) (float64, int64) {
	t.Helper()
	document, err := h.tours.FindOne(context.Background(), []query.Clause{query.Eq(docstore.FieldID, tourID)}, query.Projection{})
	require.NoError(t, err)
	return document[tour.FieldRatingsAverage].(float64), document[tour.FieldRatingsCount].(int64)
}

/*
TestReviewLifecycle verifies nested creation, uniqueness, population and the
rating summary after each write.
*/
func TestReviewLifecycle(t *testing.T) {
	h := newHarness(t)
	forest := h.tour(t, "The Forest Hiker", false)
	alice := h.user(t, "Alice Walker", sec.RoleUser)
	bob := h.user(t, "Bob Rambler", sec.RoleUser)

	status, _ := h.do(t, http.MethodPost, "/tours/"+forest+"/reviews", `{"review":"Lovely","rating":4}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	// ── Create ────────────────────────────────────────────────────────────
	h.caller = alice
	status, payload := h.do(t, http.MethodPost, "/tours/"+forest+"/reviews", `{"review":"Lovely","rating":4}`)
	require.Equal(t, http.StatusCreated, status)
	created := payload["data"].(map[string]any)
	alices := created["id"].(string)
	assert.Equal(t, forest, created["tour"])
	assert.Equal(t, alice.ID, created["user"])

	status, _ = h.do(t, http.MethodPost, "/tours/"+forest+"/reviews", `{"review":"Again","rating":5}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(t, http.MethodPost, "/tours/"+forest+"/reviews", `{"review":"Too good","rating":6}`)
	assert.Equal(t, http.StatusBadRequest, status)

	h.caller = bob
	status, payload = h.do(t, http.MethodPost, "/reviews", fmt.Sprintf(`{"review":"Superb","rating":5,"tour":%q}`, forest))
	require.Equal(t, http.StatusCreated, status)
	bobs := payload["data"].(map[string]any)["id"].(string)

	average, count := h.summary(t, forest)
	assert.Equal(t, 4.5, average)
	assert.EqualValues(t, 2, count)

	// ── Read ──────────────────────────────────────────────────────────────
	status, payload = h.do(t, http.MethodGet, "/tours/"+forest+"/reviews?sort=rating", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, payload["results"])
	author := payload["data"].([]any)[0].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "Alice Walker", author["name"])
	assert.NotContains(t, author, "email")

	status, payload = h.do(t, http.MethodGet, "/tours/"+h.tour(t, "The Empty Valley", false)+"/reviews", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, payload["results"])

	// ── Update & Delete ───────────────────────────────────────────────────
	status, _ = h.do(t, http.MethodPatch, "/reviews/"+bobs, `{"rating":2}`)
	require.Equal(t, http.StatusOK, status)
	average, _ = h.summary(t, forest)
	assert.Equal(t, 3.0, average)

	h.caller = h.user(t, "Gina Guide", sec.RoleGuide)
	status, _ = h.do(t, http.MethodDelete, "/reviews/"+bobs, "")
	assert.Equal(t, http.StatusForbidden, status)

	h.caller = h.user(t, "Ada Admin", sec.RoleAdmin)
	status, _ = h.do(t, http.MethodDelete, "/reviews/"+bobs, "")
	require.Equal(t, http.StatusNoContent, status)
	average, count = h.summary(t, forest)
	assert.Equal(t, 4.0, average)
	assert.EqualValues(t, 1, count)

	status, _ = h.do(t, http.MethodDelete, "/reviews/"+alices, "")
	require.Equal(t, http.StatusNoContent, status)
	average, count = h.summary(t, forest)
	assert.Equal(t, tour.DefaultRatingsAverage, average)
	assert.EqualValues(t, 0, count)
}

/*
TestReviewAuthorIsCaller ignores a user id sent in the body.
*/
func TestReviewAuthorIsCaller(t *testing.T) {
	h := newHarness(t)
	forest := h.tour(t, "The Forest Hiker", false)
	victim := h.user(t, "Vera Victim", sec.RoleUser)
	h.caller = h.user(t, "Mallory Member", sec.RoleUser)

	status, payload := h.do(t, http.MethodPost, "/tours/"+forest+"/reviews",
		fmt.Sprintf(`{"review":"Posing","rating":1,"user":%q}`, victim.ID))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, h.caller.ID, payload["data"].(map[string]any)["user"])
}

/*
TestRatingsRecomputeIsStable checks the rounded mean and that a second recompute
changes nothing.
*/
func TestRatingsRecomputeIsStable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sea := h.tour(t, "The Sea Explorer", false)

	for i, rating := range []float64{2, 4, 5} {
		reviewer := h.user(t, fmt.Sprintf("Reviewer %d", i), sec.RoleUser)
		_, err := h.reviews.Insert(ctx, docstore.Document{"review": "ok", "rating": rating, "tour": sea, "user": reviewer.ID})
		require.NoError(t, err)
	}

	require.NoError(t, h.ratings.Recompute(ctx, sea))
	firstAverage, firstCount := h.summary(t, sea)
	assert.Equal(t, 3.7, firstAverage)
	assert.EqualValues(t, 3, firstCount)

	require.NoError(t, h.ratings.Recompute(ctx, sea))
	secondAverage, secondCount := h.summary(t, sea)
	assert.Equal(t, firstAverage, secondAverage)
	assert.Equal(t, firstCount, secondCount)
}

/*
TestRatings verifies rounding, the empty default, moved reviews and deleted tours.
*/
func TestRatings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := h.tour(t, "The Sea Explorer", false)
	second := h.tour(t, "The Lake Rower", false)

	for _, rating := range []float64{5, 4, 4} {
		h.caller = h.user(t, fmt.Sprintf("Rater %g %d", rating, h.users.Len()), sec.RoleUser)
		_, err := h.reviews.Insert(ctx, docstore.Document{"review": "ok", "rating": rating, "tour": first, "user": h.caller.ID})
		require.NoError(t, err)
	}
	require.NoError(t, h.ratings.Recompute(ctx, first))
	average, count := h.summary(t, first)
	assert.Equal(t, 4.3, average)
	assert.EqualValues(t, 3, count)

	moved, err := h.reviews.FindOne(ctx, []query.Clause{query.Eq(review.FieldTour, first)}, query.Projection{})
	require.NoError(t, err)
	after := moved.Merge(docstore.Document{"tour": second})
	_, err = h.reviews.UpdateOne(ctx, []query.Clause{query.Eq(docstore.FieldID, moved.ID())}, docstore.Document{"tour": second})
	require.NoError(t, err)

	hook := h.ratings.Hook()
	require.NoError(t, hook(ctx, resource.WriteEvent{Op: resource.OpUpdate, Before: moved, After: after}))
	average, count = h.summary(t, first)
	assert.Equal(t, 4.0, average)
	assert.EqualValues(t, 2, count)
	average, count = h.summary(t, second)
	assert.Equal(t, 5.0, average)
	assert.EqualValues(t, 1, count)

	_, err = h.tours.DeleteOne(ctx, []query.Clause{query.Eq(docstore.FieldID, second)})
	require.NoError(t, err)
	assert.NoError(t, h.ratings.Recompute(ctx, second))
	assert.NoError(t, h.ratings.Recompute(ctx, ""))
}

/*
TestReconciler verifies that drifted summaries are repaired, secret tours included.
*/
func TestReconciler(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	secret := h.tour(t, "The Secret Valley", true)
	empty := h.tour(t, "The Quiet Meadow", false)

	reviewer := h.user(t, "Rita Reviewer", sec.RoleUser)
	_, err := h.reviews.Insert(ctx, docstore.Document{"review": "hidden gem", "rating": 3.0, "tour": secret, "user": reviewer.ID})
	require.NoError(t, err)
	_, err = h.tours.UpdateOne(ctx, []query.Clause{query.Eq(docstore.FieldID, empty)},
		docstore.Document{tour.FieldRatingsAverage: 1.0, tour.FieldRatingsCount: int64(9)})
	require.NoError(t, err)

	reconciler := review.NewReconciler(h.ratings, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, reconciler.Job()(ctx))

	average, count := h.summary(t, secret)
	assert.Equal(t, 3.0, average)
	assert.EqualValues(t, 1, count)

	average, count = h.summary(t, empty)
	assert.Equal(t, tour.DefaultRatingsAverage, average)
	assert.EqualValues(t, 0, count)
}
