// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package tour implements the tour catalogue.

Tours are served by the generic resource handlers over a document collection.
This package contributes what is specific to tours:

  - The collection descriptor and its default scope (secret tours are hidden).
  - A prepare step that derives the slug and checks the discount.
  - The reporting endpoints (tour-stats and monthly-plan), backed by SQL.
  - The geospatial lookups (tours-within and distances), measured from the
    start location with the haversine formula in SQL.
*/
package tour

import (
	"github.com/taibuivan/trailhead/internal/platform/database/schema"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/pkg/pointer"
	"github.com/taibuivan/trailhead/pkg/query"
)

// Public field names of the tours collection.
const (
	FieldName             = "name"
	FieldSlug             = "slug"
	FieldDuration         = "duration"
	FieldMaxGroupSize     = "maxGroupSize"
	FieldDifficulty       = "difficulty"
	FieldRatingsAverage   = "ratingsAverage"
	FieldRatingsCount     = "ratingsCount"
	FieldPrice            = "price"
	FieldPriceDiscount    = "priceDiscount"
	FieldSummary          = "summary"
	FieldDescription      = "description"
	FieldImageCover       = "imageCover"
	FieldImages           = "images"
	FieldStartDates       = "startDates"
	FieldSecretTour       = "secretTour"
	FieldGuides           = "guides"
	FieldStartLatitude    = "startLatitude"
	FieldStartLongitude   = "startLongitude"
	FieldStartAddress     = "startAddress"
	FieldStartDescription = "startDescription"
	FieldReviews          = "reviews"
)

// Difficulties lists the accepted difficulty levels.
var Difficulties = []string{"easy", "medium", "difficult"}

// Rating summary of a tour without reviews.
const (
	DefaultRatingsAverage = 4.5
	MinRating             = 1.0
	MaxRating             = 5.0
)

// Collection describes core.tour as a document collection.
func Collection() *docstore.Collection {
	table := schema.CoreTour
	return docstore.NewCollection("tour", table.Table, query.DefaultSort,
		docstore.Field{Name: FieldName, Column: table.Name, Kind: docstore.KindString, Required: true, Writable: true, Filterable: true, Sortable: true, MinLen: 10, MaxLen: 40},
		docstore.Field{Name: FieldSlug, Column: table.Slug, Kind: docstore.KindString, Filterable: true},
		docstore.Field{Name: FieldDuration, Column: table.Duration, Kind: docstore.KindInt, Required: true, Writable: true, Filterable: true, Sortable: true, Min: pointer.To(1.0)},
		docstore.Field{Name: FieldMaxGroupSize, Column: table.MaxGroupSize, Kind: docstore.KindInt, Required: true, Writable: true, Filterable: true, Sortable: true, Min: pointer.To(1.0)},
		docstore.Field{Name: FieldDifficulty, Column: table.Difficulty, Kind: docstore.KindString, Required: true, Writable: true, Filterable: true, Sortable: true, Enum: Difficulties},
		docstore.Field{Name: FieldRatingsAverage, Column: table.RatingsAverage, Kind: docstore.KindFloat, Filterable: true, Sortable: true, Min: pointer.To(MinRating), Max: pointer.To(MaxRating), Default: DefaultRatingsAverage},
		docstore.Field{Name: FieldRatingsCount, Column: table.RatingsCount, Kind: docstore.KindInt, Filterable: true, Sortable: true, Default: int64(0)},
		docstore.Field{Name: FieldPrice, Column: table.Price, Kind: docstore.KindFloat, Required: true, Writable: true, Filterable: true, Sortable: true},
		docstore.Field{Name: FieldPriceDiscount, Column: table.PriceDiscount, Kind: docstore.KindFloat, Writable: true, Filterable: true, Sortable: true},
		docstore.Field{Name: FieldSummary, Column: table.Summary, Kind: docstore.KindString, Required: true, Writable: true},
		docstore.Field{Name: FieldDescription, Column: table.Description, Kind: docstore.KindString, Writable: true},
		docstore.Field{Name: FieldImageCover, Column: table.ImageCover, Kind: docstore.KindString, Required: true, Writable: true},
		docstore.Field{Name: FieldImages, Column: table.Images, Kind: docstore.KindStringArray, Writable: true},
		docstore.Field{Name: FieldStartDates, Column: table.StartDates, Kind: docstore.KindTimeArray, Writable: true, Filterable: true},
		docstore.Field{Name: FieldSecretTour, Column: table.SecretTour, Kind: docstore.KindBool, Writable: true, Hidden: true, Default: false},
		docstore.Field{Name: FieldGuides, Column: table.Guides, Kind: docstore.KindStringArray, Writable: true, Filterable: true},
		docstore.Field{Name: FieldStartLatitude, Column: table.StartLatitude, Kind: docstore.KindFloat, Writable: true, Min: pointer.To(-90.0), Max: pointer.To(90.0)},
		docstore.Field{Name: FieldStartLongitude, Column: table.StartLongitude, Kind: docstore.KindFloat, Writable: true, Min: pointer.To(-180.0), Max: pointer.To(180.0)},
		docstore.Field{Name: FieldStartAddress, Column: table.StartAddress, Kind: docstore.KindString, Writable: true},
		docstore.Field{Name: FieldStartDescription, Column: table.StartDescription, Kind: docstore.KindString, Writable: true},
	)
}

// NewStore returns the unscoped PostgreSQL tour store. Maintenance code such as
// the ratings updater uses it directly so secret tours are included.
func NewStore(db postgres.DB) docstore.Store {
	return docstore.NewPostgresStore(db, Collection())
}

// Public hides secret tours.
func Public(store docstore.Store) docstore.Store {
	return docstore.Scoped(store, query.Eq(FieldSecretTour, "false"))
}
