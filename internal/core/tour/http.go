// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tour

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/resource"
	"github.com/taibuivan/trailhead/internal/platform/respond"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/pkg/convert"
	"github.com/taibuivan/trailhead/pkg/pagination"
	"github.com/taibuivan/trailhead/pkg/query"
)

// ParamTourID names the tour in nested routes such as /tours/{tourId}/reviews.
const ParamTourID = "tourId"

// Geospatial lookup messages.
const (
	msgBadCenter   = "Please provide latitude and longitude in the format lat,lng"
	msgBadUnit     = "Unit must be mi or km"
	msgBadDistance = "Distance must be a positive number"
)

// Top-tours alias presets.
const (
	topToursLimit  = "5"
	topToursSort   = "-ratingsAverage,price"
	topToursFields = "name,price,ratingsAverage,summary,difficulty"
)

// Sessions provides the session stages guarding the tour routes.
type Sessions interface {
	Protect() pipeline.Stage
	IsLoggedIn() pipeline.Stage
}

// Handler implements the HTTP layer for tours.
type Handler struct {
	store    docstore.Store
	tours    *resource.Factory
	reports  Reports
	sessions Sessions
	detail   []docstore.Populator
}

/*
NewHandler constructs the tour [Handler].

Parameters:
  - store: The public, populated tour store
  - reports: Aggregate reports
  - sessions: Session stages
  - detail: Extra populators for the single-tour read (its reviews)
*/
func NewHandler(store docstore.Store, reports Reports, sessions Sessions, detail ...docstore.Populator) *Handler {
	return &Handler{
		store:    store,
		tours:    resource.New(store, resource.WithPrepare(Prepare)),
		reports:  reports,
		sessions: sessions,
		detail:   detail,
	}
}

/*
Register mounts the tour routes on router (the /tours prefix). nested, when not
nil, is mounted on /{tourId}/reviews.
*/
func (handler *Handler) Register(router chi.Router, base *pipeline.Chain, nested func(chi.Router)) {
	public := base.With(handler.sessions.IsLoggedIn())
	staff := base.With(handler.sessions.Protect(), middleware.RestrictTo(sec.RoleAdmin, sec.RoleLeadGuide, sec.RoleGuide))
	managers := base.With(handler.sessions.Protect(), middleware.RestrictTo(sec.RoleAdmin, sec.RoleLeadGuide))

	// Reports & aliases
	router.Method(http.MethodGet, "/top-5-cheap", public.With(AliasTopTours(), handler.tours.GetAll()))
	router.Method(http.MethodGet, "/tour-stats", base.With(pipeline.Terminal(handler.stats)))
	router.Method(http.MethodGet, "/monthly-plan/{year}", staff.With(pipeline.Terminal(handler.monthlyPlan)))
	router.Method(http.MethodGet, "/tours-within/{distance}/center/{latlng}/unit/{unit}", public.With(pipeline.Terminal(handler.within)))
	router.Method(http.MethodGet, "/distances/{latlng}/unit/{unit}", base.With(pipeline.Terminal(handler.distances)))

	// Catalogue
	router.Method(http.MethodGet, "/", public.With(handler.tours.GetAll()))
	router.Method(http.MethodGet, "/{id}", public.With(handler.tours.GetOne(handler.detail...)))
	router.Method(http.MethodPost, "/", managers.With(handler.tours.CreateOne()))
	router.Method(http.MethodPatch, "/{id}", managers.With(handler.tours.UpdateOne()))
	router.Method(http.MethodDelete, "/{id}", managers.With(handler.tours.DeleteOne()))

	if nested != nil {
		router.Route("/{"+ParamTourID+"}/reviews", nested)
	}
}

// AliasTopTours presets the query of the five best cheap tours. Client
// parameters with the same names are overridden.
func AliasTopTours() pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		exchange.Query.Set("limit", topToursLimit)
		exchange.Query.Set("sort", topToursSort)
		exchange.Query.Set("fields", topToursFields)
		return pipeline.Next, nil
	}
}

// # Reports

/*
GET /api/v1/tours/tour-stats.

Response:
  - 200: {stats: []DifficultyStats}
*/
func (handler *Handler) stats(exchange *pipeline.Exchange) error {
	stats, err := handler.reports.Stats(exchange.Context())
	if err != nil {
		return err
	}
	respond.OK(exchange.Writer, map[string]any{"stats": stats})
	return nil
}

/*
GET /api/v1/tours/monthly-plan/{year}.

Response:
  - 200: {plan: []MonthPlan}
  - 400: The year is not a number
*/
func (handler *Handler) monthlyPlan(exchange *pipeline.Exchange) error {
	raw := exchange.Param("year")
	year := convert.ToIntD(raw, 0)
	if year < 1 || year > 9999 {
		return apperr.BadRequest(fmt.Sprintf("Invalid year: %s.", raw))
	}

	plan, err := handler.reports.MonthlyPlan(exchange.Context(), year)
	if err != nil {
		return err
	}
	respond.OK(exchange.Writer, map[string]any{"plan": plan})
	return nil
}

// # Geospatial

// locate reads the center and unit path parameters shared by both lookups.
func locate(exchange *pipeline.Exchange) (Point, Unit, error) {
	center, ok := ParsePoint(exchange.Param("latlng"))
	if !ok {
		return Point{}, "", apperr.BadRequest(msgBadCenter)
	}
	unit := Unit(exchange.Param("unit"))
	if unit.EarthRadius() == 0 {
		return Point{}, "", apperr.BadRequest(msgBadUnit)
	}
	return center, unit, nil
}

/*
GET /api/v1/tours/tours-within/{distance}/center/{lat,lng}/unit/{mi|km}.

Response:
  - 200: Tours starting within distance of the center, nearest first
  - 400: Malformed distance, center or unit
*/
func (handler *Handler) within(exchange *pipeline.Exchange) error {
	center, unit, err := locate(exchange)
	if err != nil {
		return err
	}
	radius := convert.ToFloatD(exchange.Param("distance"), 0)
	if radius <= 0 {
		return apperr.BadRequest(msgBadDistance)
	}

	ctx := exchange.Context()
	ids, err := handler.reports.Within(ctx, center, radius, unit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		respond.List[docstore.Document](exchange.Writer, nil, nil)
		return nil
	}

	page, err := handler.store.Find(ctx, query.Spec{
		Filter: []query.Clause{query.Eq(docstore.FieldID, ids...)},
		Page:   pagination.Params{Page: 1, Limit: len(ids)},
	})
	if err != nil {
		return err
	}

	// Restore the distance order the lookup returned.
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.SliceStable(page.Items, func(i, j int) bool {
		return rank[page.Items[i].ID()] < rank[page.Items[j].ID()]
	})

	respond.List(exchange.Writer, page.Items, nil)
	return nil
}

/*
GET /api/v1/tours/distances/{lat,lng}/unit/{mi|km}.

Response:
  - 200: []Distance, nearest first
  - 400: Malformed center or unit
*/
func (handler *Handler) distances(exchange *pipeline.Exchange) error {
	center, unit, err := locate(exchange)
	if err != nil {
		return err
	}

	distances, err := handler.reports.Distances(exchange.Context(), center, unit)
	if err != nil {
		return err
	}
	respond.List(exchange.Writer, distances, nil)
	return nil
}
