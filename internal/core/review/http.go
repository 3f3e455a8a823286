// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package review

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/resource"
	"github.com/taibuivan/trailhead/internal/platform/sec"
)

// Handler implements the HTTP layer for reviews.
type Handler struct {
	reviews *resource.Factory
	protect pipeline.Stage
}

// NewHandler constructs the review [Handler] over the populated review store.
// Every write is reported to ratings.
func NewHandler(store docstore.Store, ratings *Ratings, protect pipeline.Stage) *Handler {
	factory := resource.New(store,
		resource.WithParentScope(tour.ParamTourID, FieldTour),
		resource.WithPrincipalField(FieldUser),
		resource.WithWriteHook(ratings.Hook()),
	)
	return &Handler{reviews: factory, protect: protect}
}

/*
Register mounts the review routes on router. It serves both /reviews and the
nested /tours/{tourId}/reviews, where lists are limited to the tour and new
reviews are attached to it.
*/
func (handler *Handler) Register(router chi.Router, base *pipeline.Chain) {
	member := base.With(handler.protect)
	authors := member.With(middleware.RestrictTo(sec.RoleUser))
	editors := member.With(middleware.RestrictTo(sec.RoleUser, sec.RoleAdmin))

	router.Method(http.MethodGet, "/", member.With(handler.reviews.GetAll()))
	router.Method(http.MethodPost, "/", authors.With(handler.reviews.CreateOne()))
	router.Method(http.MethodGet, "/{id}", member.With(handler.reviews.GetOne()))
	router.Method(http.MethodPatch, "/{id}", editors.With(handler.reviews.UpdateOne()))
	router.Method(http.MethodDelete, "/{id}", editors.With(handler.reviews.DeleteOne()))
}
