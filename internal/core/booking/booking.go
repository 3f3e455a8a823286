// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package booking records which member booked which tour, and at what price.
package booking

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/trailhead/internal/platform/database/schema"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/internal/platform/resource"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/internal/platform/validate"
	"github.com/taibuivan/trailhead/pkg/query"
)

// Public field names of the bookings collection.
const (
	FieldTour  = "tour"
	FieldUser  = "user"
	FieldPrice = "price"
	FieldPaid  = "paid"
)

const msgPriceNotPositive = "A booking must have a price above 0"

// Collection describes core.booking as a document collection.
func Collection() *docstore.Collection {
	table := schema.CoreBooking
	return docstore.NewCollection("booking", table.Table, query.DefaultSort,
		docstore.Field{Name: FieldTour, Column: table.TourID, Kind: docstore.KindRef, Required: true, Writable: true, Filterable: true},
		docstore.Field{Name: FieldUser, Column: table.UserID, Kind: docstore.KindRef, Required: true, Writable: true, Filterable: true},
		docstore.Field{Name: FieldPrice, Column: table.Price, Kind: docstore.KindFloat, Required: true, Writable: true, Filterable: true, Sortable: true},
		docstore.Field{Name: FieldPaid, Column: table.Paid, Kind: docstore.KindBool, Writable: true, Filterable: true, Default: true},
	)
}

// NewStore returns the PostgreSQL booking store.
func NewStore(db postgres.DB) docstore.Store {
	return docstore.NewPostgresStore(db, Collection())
}

// checkPrice rejects non-positive prices on create and on price changes.
func checkPrice(_ context.Context, document, _ docstore.Document) error {
	price, ok := document[FieldPrice].(float64)
	if !ok {
		return nil
	}
	validator := &validate.Validator{}
	return validator.Custom(FieldPrice, price <= 0, msgPriceNotPositive).Err()
}

// # HTTP

// Handler implements the HTTP layer for bookings.
type Handler struct {
	bookings *resource.Factory
	protect  pipeline.Stage
}

// NewHandler constructs the booking [Handler] over the populated booking store.
func NewHandler(store docstore.Store, protect pipeline.Stage) *Handler {
	return &Handler{
		bookings: resource.New(store, resource.WithPrepare(checkPrice)),
		protect:  protect,
	}
}

// Register mounts the booking routes on router (the /bookings prefix). Only
// admins and lead guides manage bookings.
func (handler *Handler) Register(router chi.Router, base *pipeline.Chain) {
	staff := base.With(handler.protect, middleware.RestrictTo(sec.RoleAdmin, sec.RoleLeadGuide))

	router.Method(http.MethodGet, "/", staff.With(handler.bookings.GetAll()))
	router.Method(http.MethodPost, "/", staff.With(handler.bookings.CreateOne()))
	router.Method(http.MethodGet, "/{id}", staff.With(handler.bookings.GetOne()))
	router.Method(http.MethodPatch, "/{id}", staff.With(handler.bookings.UpdateOne()))
	router.Method(http.MethodDelete, "/{id}", staff.With(handler.bookings.DeleteOne()))
}
