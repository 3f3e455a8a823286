// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package review

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/jobs"
	"github.com/taibuivan/trailhead/internal/platform/resource"
	"github.com/taibuivan/trailhead/pkg/pagination"
	"github.com/taibuivan/trailhead/pkg/query"
)

// # Aggregate Updater

// Ratings keeps the rating summary of each tour in step with its reviews.
//
// # Consistency
//
// Every recompute aggregates from scratch, so it is idempotent and concurrent
// recomputes of one tour converge on the last writer's (complete) view.
type Ratings struct {
	reviews docstore.Store
	tours   docstore.Store
}

// NewRatings builds the updater. tours must be unscoped so secret tours are
// kept up to date too.
func NewRatings(reviews, tours docstore.Store) *Ratings {
	return &Ratings{reviews: reviews, tours: tours}
}

/*
Recompute stores the review count and mean rating of one tour.

The mean is rounded to one decimal place. A tour without reviews returns to
count 0 and the default average. A tour that no longer exists is ignored.
*/
func (ratings *Ratings) Recompute(ctx context.Context, tourID string) error {
	if tourID == "" {
		return nil
	}

	summary, err := ratings.reviews.Aggregate(ctx, []query.Clause{query.Eq(FieldTour, tourID)}, FieldRating)
	if err != nil {
		return fmt.Errorf("review_ratings_aggregate_failed: %w", err)
	}

	average := tour.DefaultRatingsAverage
	if summary.Count > 0 {
		average = math.Round(summary.Average*10) / 10
	}

	_, err = ratings.tours.UpdateOne(ctx,
		[]query.Clause{query.Eq(docstore.FieldID, tourID)},
		docstore.Document{
			tour.FieldRatingsCount:   summary.Count,
			tour.FieldRatingsAverage: average,
		},
	)
	if err != nil && !apperr.IsNotFound(err) {
		return fmt.Errorf("review_ratings_update_failed: %w", err)
	}
	return nil
}

// Hook recomputes the tours a committed review write touched: the tour after
// the write and, when it moved, the tour before it.
func (ratings *Ratings) Hook() resource.WriteHook {
	return func(ctx context.Context, event resource.WriteEvent) error {
		before, after := tourOf(event.Before), tourOf(event.After)

		if err := ratings.Recompute(ctx, after); err != nil {
			return err
		}
		if before != after {
			return ratings.Recompute(ctx, before)
		}
		return nil
	}
}

func tourOf(document docstore.Document) string {
	if document == nil {
		return ""
	}
	return document.String(FieldTour)
}

// # Reconciliation

// Reconciler recomputes the summary of every tour, secret ones included.
type Reconciler struct {
	ratings *Ratings
	logger  *slog.Logger
}

// NewReconciler creates a [Reconciler].
func NewReconciler(ratings *Ratings, logger *slog.Logger) *Reconciler {
	return &Reconciler{ratings: ratings, logger: logger}
}

// Run walks all tours page by page and recomputes each one.
func (reconciler *Reconciler) Run(ctx context.Context) error {
	spec := query.Spec{
		Sort:       []query.Order{{Field: docstore.FieldID}},
		Projection: query.Projection{Include: []string{docstore.FieldID}},
		Page:       pagination.Params{Page: 1, Limit: pagination.MaxLimit},
	}

	reconciled := 0
	for {
		page, err := reconciler.ratings.tours.Find(ctx, spec)
		if err != nil {
			return fmt.Errorf("review_reconcile_list_failed: %w", err)
		}

		for _, document := range page.Items {
			if err := reconciler.ratings.Recompute(ctx, document.ID()); err != nil {
				return err
			}
			reconciled++
		}

		if len(page.Items) < spec.Page.Limit {
			break
		}
		spec.Page.Page++
	}

	reconciler.logger.InfoContext(ctx, "review_ratings_reconciled", slog.Int("tours", reconciled))
	return nil
}

// Job adapts the reconciler to the scheduler.
func (reconciler *Reconciler) Job() jobs.Job {
	return reconciler.Run
}
