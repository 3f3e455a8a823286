// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tour

import (
	"context"
	"strings"
	"time"

	"github.com/taibuivan/trailhead/pkg/convert"
)

// StatsThreshold is the minimum ratingsAverage of tours included in [Reports.Stats].
const StatsThreshold = 4.5

// DifficultyStats summarises the well-rated tours of one difficulty level.
type DifficultyStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int64   `json:"numTours"`
	NumRatings int64   `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthPlan lists the tour starts falling in one month.
type MonthPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int64    `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// Unit is a unit of geospatial distance.
type Unit string

// Accepted distance units.
const (
	UnitMiles      Unit = "mi"
	UnitKilometres Unit = "km"
)

// EarthRadius returns the mean radius of the Earth in unit, or zero when the
// unit is unknown.
func (unit Unit) EarthRadius() float64 {
	switch unit {
	case UnitMiles:
		return 3963.2
	case UnitKilometres:
		return 6378.1
	}
	return 0
}

// Point is a position in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// ParsePoint reads a "lat,lng" pair. ok is false when either part is not a
// number or lies outside the valid range.
func ParsePoint(raw string) (point Point, ok bool) {
	lat, lng, found := strings.Cut(raw, ",")
	if !found {
		return Point{}, false
	}
	point.Lat = convert.ToFloatD(lat, 1000)
	point.Lng = convert.ToFloatD(lng, 1000)
	if point.Lat < -90 || point.Lat > 90 || point.Lng < -180 || point.Lng > 180 {
		return Point{}, false
	}
	return point, true
}

// Distance is how far a tour starts from a given point.
type Distance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Reports computes the catalogue reports. Secret tours are never counted.
type Reports interface {
	// Stats groups tours rated at least [StatsThreshold] by difficulty, cheapest
	// average price first.
	Stats(ctx context.Context) ([]DifficultyStats, error)

	// MonthlyPlan counts start dates per month of year, busiest month first.
	MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error)

	// Within returns the ids of tours starting at most radius (in unit) from
	// center, nearest first. Tours without a start location are skipped.
	Within(ctx context.Context, center Point, radius float64, unit Unit) ([]string, error)

	// Distances measures from center to the start of every tour that has one,
	// nearest first.
	Distances(ctx context.Context, center Point, unit Unit) ([]Distance, error)
}

// yearBounds returns the half-open UTC interval covering year.
func yearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
