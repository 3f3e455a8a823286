// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tour_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/docstore/docstoretest"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/respond"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/internal/users/account"
	"github.com/taibuivan/trailhead/pkg/uuid"
)

// # Fakes

type fakeSessions struct {
	caller *sec.Principal
}

func (sessions *fakeSessions) IsLoggedIn() pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		if sessions.caller != nil {
			exchange.Authenticate(sessions.caller)
		}
		return pipeline.Next, nil
	}
}

func (sessions *fakeSessions) Protect() pipeline.Stage {
	attach := sessions.IsLoggedIn()
	guard := middleware.RequireAuth()
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		if _, err := attach(exchange); err != nil {
			return pipeline.Halt, err
		}
		return guard(exchange)
	}
}

type fakeReports struct {
	year   int
	center tour.Point
	radius float64
	unit   tour.Unit
	nearby []string
}

func (reports *fakeReports) Stats(context.Context) ([]tour.DifficultyStats, error) {
	return []tour.DifficultyStats{{Difficulty: "EASY", NumTours: 2, AvgPrice: 397}}, nil
}

func (reports *fakeReports) MonthlyPlan(_ context.Context, year int) ([]tour.MonthPlan, error) {
	reports.year = year
	return []tour.MonthPlan{{Month: 7, NumTourStarts: 3, Tours: []string{"The Sea Explorer"}}}, nil
}

func (reports *fakeReports) Within(_ context.Context, center tour.Point, radius float64, unit tour.Unit) ([]string, error) {
	reports.center, reports.radius, reports.unit = center, radius, unit
	return reports.nearby, nil
}

func (reports *fakeReports) Distances(_ context.Context, center tour.Point, unit tour.Unit) ([]tour.Distance, error) {
	reports.center, reports.unit = center, unit
	return []tour.Distance{{ID: "a", Name: "The Sea Explorer", Distance: 12.5}, {ID: "b", Name: "The Forest Hiker", Distance: 340}}, nil
}

// # Harness

type harness struct {
	tours    *docstoretest.Store
	users    *docstoretest.Store
	reports  *fakeReports
	sessions *fakeSessions
	router   chi.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		tours:    docstoretest.New(tour.Collection(), docstoretest.WithUnique(tour.FieldName)),
		users:    docstoretest.New(account.Collection()),
		reports:  &fakeReports{},
		sessions: &fakeSessions{},
	}
	store := docstore.Populated(tour.Public(h.tours),
		docstore.PopulateRefs(tour.FieldGuides, account.ActiveOnly(h.users), account.GuideFields...))

	base := pipeline.New(func(exchange *pipeline.Exchange, err error) {
		respond.Error(exchange.Writer, exchange.Request, err)
	}, middleware.ParseBody(1<<16))

	router := chi.NewRouter()
	router.Route("/tours", func(r chi.Router) {
		tour.NewHandler(store, h.reports, h.sessions).Register(r, base, nil)
	})
	h.router = router
	return h
}

func (h *harness) login(role sec.UserRole) {
	h.sessions.caller = &sec.Principal{ID: uuid.New(), Role: role}
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

func (h *harness) seed(t *testing.T, name string, price, rating float64, secret bool, guides ...string) docstore.Document {
	t.Helper()
	document, err := h.tours.Insert(context.Background(), docstore.Document{
		tour.FieldName: name, tour.FieldSlug: strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		tour.FieldDuration: int64(5), tour.FieldMaxGroupSize: int64(10), tour.FieldDifficulty: "easy",
		tour.FieldPrice: price, tour.FieldRatingsAverage: rating, tour.FieldRatingsCount: int64(0),
		tour.FieldSummary: "summary", tour.FieldImageCover: "cover.jpg",
		tour.FieldSecretTour: secret, tour.FieldGuides: guides,
	})
	require.NoError(t, err)
	return document
}

func body(name string, price float64, extra string) string {
	return fmt.Sprintf(`{"name":%q,"duration":5,"maxGroupSize":10,"difficulty":"medium","price":%g,"summary":"A fine tour","imageCover":"cover.jpg"%s}`,
		name, price, extra)
}

// # Tests

/*
TestPrepare verifies slug derivation and the discount rules on create and update.
*/
func TestPrepare(t *testing.T) {
	tests := []struct {
		name     string
		document docstore.Document
		existing docstore.Document
		wantErr  bool
	}{
		{"create_ok", docstore.Document{"name": "The Forest Hiker", "price": 397.0, "priceDiscount": 100.0}, nil, false},
		{"create_discount_too_high", docstore.Document{"name": "The Forest Hiker", "price": 397.0, "priceDiscount": 397.0}, nil, true},
		{"create_zero_price", docstore.Document{"name": "The Forest Hiker", "price": 0.0}, nil, true},
		{"update_discount_against_stored_price", docstore.Document{"priceDiscount": 500.0}, docstore.Document{"price": 397.0}, true},
		{"update_price_below_stored_discount", docstore.Document{"price": 50.0}, docstore.Document{"price": 397.0, "priceDiscount": 100.0}, true},
		{"update_unrelated", docstore.Document{"summary": "x"}, docstore.Document{"price": 397.0, "priceDiscount": 100.0}, false},
		{"invalid_guide", docstore.Document{"guides": []string{"nope"}}, docstore.Document{"price": 397.0}, true},
		{"create_start_location", docstore.Document{"price": 397.0, "startLatitude": 25.78, "startLongitude": -80.18}, nil, false},
		{"create_latitude_only", docstore.Document{"price": 397.0, "startLatitude": 25.78}, nil, true},
		{"update_longitude_next_to_stored_latitude", docstore.Document{"startLongitude": -80.18}, docstore.Document{"price": 397.0, "startLatitude": 25.78}, false},
		{"update_clears_one_coordinate", docstore.Document{"startLongitude": nil}, docstore.Document{"price": 397.0, "startLatitude": 25.78, "startLongitude": -80.18}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tour.Prepare(context.Background(), tt.document, tt.existing)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	document := docstore.Document{"name": "The Forest Hiker"}
	require.NoError(t, tour.Prepare(context.Background(), document, docstore.Document{"price": 10.0}))
	assert.Equal(t, "the-forest-hiker", document["slug"])
}

/*
TestCatalogue covers the CRUD routes, their role guards and the secret scope.
*/
func TestCatalogue(t *testing.T) {
	h := newHarness(t)
	guide, err := h.users.Insert(context.Background(), docstore.Document{
		"name": "Lisa Guide", "email": "lisa@example.com", "role": "guide", "photo": "lisa.jpg", "active": true,
	})
	require.NoError(t, err)

	visible := h.seed(t, "The Sea Explorer", 497, 4.8, false, guide.ID(), uuid.New())
	hidden := h.seed(t, "The Secret Valley", 997, 4.9, true)

	// ── Reads ─────────────────────────────────────────────────────────────
	status, payload := h.do(t, http.MethodGet, "/tours", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, payload["results"])

	status, _ = h.do(t, http.MethodGet, "/tours/"+hidden.ID(), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, payload = h.do(t, http.MethodGet, "/tours/"+visible.ID(), "")
	require.Equal(t, http.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.NotContains(t, data, "secretTour")
	guides := data["guides"].([]any)
	require.Len(t, guides, 1)
	assert.Equal(t, "Lisa Guide", guides[0].(map[string]any)["name"])
	assert.NotContains(t, guides[0].(map[string]any), "active")

	// ── Writes ────────────────────────────────────────────────────────────
	status, _ = h.do(t, http.MethodPost, "/tours", body("The Snow Adventurer", 997, ""))
	assert.Equal(t, http.StatusUnauthorized, status)

	h.login(sec.RoleGuide)
	status, _ = h.do(t, http.MethodPost, "/tours", body("The Snow Adventurer", 997, ""))
	assert.Equal(t, http.StatusForbidden, status)

	h.login(sec.RoleLeadGuide)
	status, _ = h.do(t, http.MethodPost, "/tours", body("The Snow Adventurer", 997, `,"ratingsAverage":1`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, payload = h.do(t, http.MethodPost, "/tours", body("The Snow Adventurer", 997, `,"priceDiscount":100`))
	require.Equal(t, http.StatusCreated, status)
	created := payload["data"].(map[string]any)
	assert.Equal(t, "the-snow-adventurer", created["slug"])
	assert.EqualValues(t, 4.5, created["ratingsAverage"])
	assert.EqualValues(t, 0, created["ratingsCount"])

	status, _ = h.do(t, http.MethodPost, "/tours", body("The Snow Adventurer", 997, ""))
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(t, http.MethodPatch, "/tours/"+created["id"].(string), `{"priceDiscount":2000}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, payload = h.do(t, http.MethodPatch, "/tours/"+created["id"].(string), `{"name":"The Snow Adventurer II"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "the-snow-adventurer-ii", payload["data"].(map[string]any)["slug"])

	status, _ = h.do(t, http.MethodDelete, "/tours/"+created["id"].(string), "")
	assert.Equal(t, http.StatusNoContent, status)
}

/*
TestAliasAndReports covers the top-5-cheap alias and the report endpoints.
*/
func TestAliasAndReports(t *testing.T) {
	h := newHarness(t)
	for i, price := range []float64{897, 397, 497, 297, 1197, 997, 1497} {
		h.seed(t, "The Park Camper "+string(rune('A'+i)), price, 4.7, false)
	}
	h.seed(t, "The Best Secret", 10, 5, true)

	status, payload := h.do(t, http.MethodGet, "/tours/top-5-cheap?limit=50", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, payload["results"])
	items := payload["data"].([]any)
	first := items[0].(map[string]any)
	assert.EqualValues(t, 297, first["price"])
	assert.NotContains(t, first, "duration")

	status, payload = h.do(t, http.MethodGet, "/tours/tour-stats", "")
	require.Equal(t, http.StatusOK, status)
	stats := payload["data"].(map[string]any)["stats"].([]any)
	assert.Equal(t, "EASY", stats[0].(map[string]any)["difficulty"])

	status, _ = h.do(t, http.MethodGet, "/tours/monthly-plan/2021", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	h.login(sec.RoleUser)
	status, _ = h.do(t, http.MethodGet, "/tours/monthly-plan/2021", "")
	assert.Equal(t, http.StatusForbidden, status)

	h.login(sec.RoleGuide)
	status, _ = h.do(t, http.MethodGet, "/tours/monthly-plan/next", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, payload = h.do(t, http.MethodGet, "/tours/monthly-plan/2021", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2021, h.reports.year)
	plan := payload["data"].(map[string]any)["plan"].([]any)
	assert.EqualValues(t, 3, plan[0].(map[string]any)["numTourStarts"])
}

/*
TestParsePoint verifies the lat,lng format and the coordinate ranges.
*/
func TestParsePoint(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want tour.Point
		ok   bool
	}{
		{"valid", "34.111745,-118.113491", tour.Point{Lat: 34.111745, Lng: -118.113491}, true},
		{"poles", "-90,180", tour.Point{Lat: -90, Lng: 180}, true},
		{"missing_comma", "34.111745", tour.Point{}, false},
		{"not_a_number", "north,west", tour.Point{}, false},
		{"latitude_out_of_range", "91,0", tour.Point{}, false},
		{"longitude_out_of_range", "0,-181", tour.Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, ok := tour.ParsePoint(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, point)
		})
	}

	assert.InDelta(t, 3963.2, tour.UnitMiles.EarthRadius(), 1e-9)
	assert.InDelta(t, 6378.1, tour.UnitKilometres.EarthRadius(), 1e-9)
	assert.Zero(t, tour.Unit("ft").EarthRadius())
}

/*
TestGeospatial covers tours-within and distances: parameter checks, the order
of the lookup and the secret scope.
*/
func TestGeospatial(t *testing.T) {
	h := newHarness(t)
	near := h.seed(t, "The Sea Explorer", 497, 4.8, false)
	far := h.seed(t, "The Forest Hiker", 397, 4.7, false)
	hidden := h.seed(t, "The Secret Valley", 997, 4.9, true)
	h.reports.nearby = []string{near.ID(), hidden.ID(), far.ID()}

	// ── Tours within ──────────────────────────────────────────────────────
	status, payload := h.do(t, http.MethodGet, "/tours/tours-within/400/center/34.111745,-118.113491/unit/mi", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, payload["results"])
	items := payload["data"].([]any)
	assert.Equal(t, near.ID(), items[0].(map[string]any)["id"])
	assert.Equal(t, far.ID(), items[1].(map[string]any)["id"])
	assert.Equal(t, tour.Point{Lat: 34.111745, Lng: -118.113491}, h.reports.center)
	assert.InDelta(t, 400, h.reports.radius, 1e-9)
	assert.Equal(t, tour.UnitMiles, h.reports.unit)

	h.reports.nearby = nil
	status, payload = h.do(t, http.MethodGet, "/tours/tours-within/1/center/0,0/unit/km", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, payload["results"])

	bad := []struct {
		name    string
		target  string
		message string
	}{
		{"center_format", "/tours/tours-within/400/center/34.111745/unit/mi", "Please provide latitude and longitude in the format lat,lng"},
		{"center_range", "/tours/tours-within/400/center/95,10/unit/mi", "Please provide latitude and longitude in the format lat,lng"},
		{"unit", "/tours/tours-within/400/center/34.1,-118.1/unit/ft", "Unit must be mi or km"},
		{"distance_negative", "/tours/tours-within/-5/center/34.1,-118.1/unit/km", "Distance must be a positive number"},
		{"distance_text", "/tours/tours-within/far/center/34.1,-118.1/unit/km", "Distance must be a positive number"},
		{"distances_center", "/tours/distances/here/unit/km", "Please provide latitude and longitude in the format lat,lng"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := h.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.message, payload["message"])
		})
	}

	// ── Distances ─────────────────────────────────────────────────────────
	status, payload = h.do(t, http.MethodGet, "/tours/distances/34.1,-118.1/unit/km", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, payload["results"])
	first := payload["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "The Sea Explorer", first["name"])
	assert.EqualValues(t, 12.5, first["distance"])
	assert.Equal(t, tour.UnitKilometres, h.reports.unit)
}
