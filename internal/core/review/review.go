// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package review implements tour reviews and the rating summary they drive.

A member reviews each tour at most once. Every committed create, update or
delete of a review recomputes the ratingsAverage and ratingsCount of the
affected tours through [Ratings], and a scheduled [Reconciler] repairs any
summary that drifted anyway.
*/
package review

import (
	"github.com/taibuivan/trailhead/internal/platform/database/schema"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/pkg/pointer"
	"github.com/taibuivan/trailhead/pkg/query"
)

// Public field names of the reviews collection.
const (
	FieldReview = "review"
	FieldRating = "rating"
	FieldTour   = "tour"
	FieldUser   = "user"
)

// Collection describes core.review as a document collection.
func Collection() *docstore.Collection {
	table := schema.CoreReview
	return docstore.NewCollection("review", table.Table, query.DefaultSort,
		docstore.Field{Name: FieldReview, Column: table.Review, Kind: docstore.KindString, Required: true, Writable: true},
		docstore.Field{Name: FieldRating, Column: table.Rating, Kind: docstore.KindFloat, Required: true, Writable: true, Filterable: true, Sortable: true, Min: pointer.To(1.0), Max: pointer.To(5.0)},
		docstore.Field{Name: FieldTour, Column: table.TourID, Kind: docstore.KindRef, Required: true, Writable: true, Filterable: true},
		docstore.Field{Name: FieldUser, Column: table.UserID, Kind: docstore.KindRef, Required: true, Writable: true, Filterable: true},
	)
}

// NewStore returns the PostgreSQL review store. The (tour, user) pair is
// unique in storage; a second review is reported as CONFLICT.
func NewStore(db postgres.DB) docstore.Store {
	return docstore.NewPostgresStore(db, Collection())
}
