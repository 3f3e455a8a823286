// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tour

import (
	"context"
	"fmt"

	"github.com/taibuivan/trailhead/internal/platform/database/schema"
	"github.com/taibuivan/trailhead/internal/platform/dberr"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/pkg/pagination"
)

// PostgresReports implements [Reports] with aggregate SQL over core.tour.
type PostgresReports struct {
	db postgres.DB
}

// NewReports creates a PostgreSQL implementation of [Reports].
func NewReports(db postgres.DB) *PostgresReports {
	return &PostgresReports{db: db}
}

// statsQuery groups visible, well-rated tours by difficulty.
var statsQuery = fmt.Sprintf(`
	SELECT UPPER(%[1]s), COUNT(*), COALESCE(SUM(%[2]s), 0),
	       AVG(%[3]s), AVG(%[4]s), MIN(%[4]s), MAX(%[4]s)
	FROM %[5]s
	WHERE %[6]s = FALSE AND %[3]s >= $1
	GROUP BY UPPER(%[1]s)
	ORDER BY AVG(%[4]s) ASC
`,
	schema.CoreTour.Difficulty, schema.CoreTour.RatingsCount, schema.CoreTour.RatingsAverage,
	schema.CoreTour.Price, schema.CoreTour.Table, schema.CoreTour.SecretTour,
)

// monthlyPlanQuery unnests start dates and buckets them by month.
var monthlyPlanQuery = fmt.Sprintf(`
	SELECT EXTRACT(MONTH FROM starts.startdate)::int AS month,
	       COUNT(*) AS numtourstarts,
	       ARRAY_AGG(t.%[1]s ORDER BY starts.startdate, t.%[1]s)
	FROM %[2]s t, UNNEST(t.%[3]s) AS starts(startdate)
	WHERE t.%[4]s = FALSE AND starts.startdate >= $1 AND starts.startdate < $2
	GROUP BY month
	ORDER BY numtourstarts DESC, month ASC
	LIMIT 12
`,
	schema.CoreTour.Name, schema.CoreTour.Table, schema.CoreTour.StartDates, schema.CoreTour.SecretTour,
)

// haversine is the great-circle distance from ($1, $2) to the tour start,
// scaled by the Earth radius in $3.
var haversine = fmt.Sprintf(`
	$3::double precision * 2 * ASIN(LEAST(1, SQRT(
		POWER(SIN(RADIANS(%[1]s - $1::double precision) / 2), 2) +
		COS(RADIANS($1::double precision)) * COS(RADIANS(%[1]s)) *
		POWER(SIN(RADIANS(%[2]s - $2::double precision) / 2), 2)
	)))`,
	schema.CoreTour.StartLatitude, schema.CoreTour.StartLongitude,
)

// nearbyQuery ranks visible tours with a start location by distance.
var nearbyQuery = fmt.Sprintf(`
	SELECT %[1]s::text, %[2]s, %[3]s AS distance
	FROM %[4]s
	WHERE %[5]s = FALSE AND %[6]s IS NOT NULL AND %[7]s IS NOT NULL
`,
	schema.CoreTour.ID, schema.CoreTour.Name, haversine, schema.CoreTour.Table,
	schema.CoreTour.SecretTour, schema.CoreTour.StartLatitude, schema.CoreTour.StartLongitude,
)

var withinQuery = fmt.Sprintf(`
	SELECT nearby.id FROM (%s) AS nearby(id, name, distance)
	WHERE nearby.distance <= $4
	ORDER BY nearby.distance, nearby.id
	LIMIT $5
`, nearbyQuery)

var distancesQuery = fmt.Sprintf(`
	SELECT nearby.id, nearby.name, nearby.distance FROM (%s) AS nearby(id, name, distance)
	ORDER BY nearby.distance, nearby.id
	LIMIT $4
`, nearbyQuery)

// Stats implements [Reports].
func (reports *PostgresReports) Stats(ctx context.Context) ([]DifficultyStats, error) {
	rows, err := reports.db.Query(ctx, statsQuery, StatsThreshold)
	if err != nil {
		return nil, dberr.Wrap(err, "tour_reports_stats_failed")
	}
	defer rows.Close()

	stats := make([]DifficultyStats, 0, len(Difficulties))
	for rows.Next() {
		var row DifficultyStats
		if err := rows.Scan(&row.Difficulty, &row.NumTours, &row.NumRatings,
			&row.AvgRating, &row.AvgPrice, &row.MinPrice, &row.MaxPrice); err != nil {
			return nil, dberr.Wrap(err, "tour_reports_stats_scan_failed")
		}
		stats = append(stats, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "tour_reports_stats_failed")
	}
	return stats, nil
}

// MonthlyPlan implements [Reports].
func (reports *PostgresReports) MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error) {
	from, to := yearBounds(year)

	rows, err := reports.db.Query(ctx, monthlyPlanQuery, from, to)
	if err != nil {
		return nil, dberr.Wrap(err, "tour_reports_monthly_plan_failed")
	}
	defer rows.Close()

	plan := make([]MonthPlan, 0, 12)
	for rows.Next() {
		var month MonthPlan
		if err := rows.Scan(&month.Month, &month.NumTourStarts, &month.Tours); err != nil {
			return nil, dberr.Wrap(err, "tour_reports_monthly_plan_scan_failed")
		}
		plan = append(plan, month)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "tour_reports_monthly_plan_failed")
	}
	return plan, nil
}

// Within implements [Reports].
func (reports *PostgresReports) Within(ctx context.Context, center Point, radius float64, unit Unit) ([]string, error) {
	rows, err := reports.db.Query(ctx, withinQuery, center.Lat, center.Lng, unit.EarthRadius(), radius, pagination.MaxLimit)
	if err != nil {
		return nil, dberr.Wrap(err, "tour_reports_within_failed")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "tour_reports_within_scan_failed")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "tour_reports_within_failed")
	}
	return ids, nil
}

// Distances implements [Reports].
func (reports *PostgresReports) Distances(ctx context.Context, center Point, unit Unit) ([]Distance, error) {
	rows, err := reports.db.Query(ctx, distancesQuery, center.Lat, center.Lng, unit.EarthRadius(), pagination.MaxLimit)
	if err != nil {
		return nil, dberr.Wrap(err, "tour_reports_distances_failed")
	}
	defer rows.Close()

	distances := make([]Distance, 0)
	for rows.Next() {
		var row Distance
		if err := rows.Scan(&row.ID, &row.Name, &row.Distance); err != nil {
			return nil, dberr.Wrap(err, "tour_reports_distances_scan_failed")
		}
		distances = append(distances, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "tour_reports_distances_failed")
	}
	return distances, nil
}
