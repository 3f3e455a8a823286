// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package jobs runs periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of periodic work. It receives a context bounded by the
// job's timeout.
type Job func(ctx context.Context) error

// Scheduler runs registered jobs. Specs use six fields, seconds first.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler. Every run is cancelled after timeout.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a named job. Overlapping runs of the same job are skipped.
func (scheduler *Scheduler) Register(name, spec string, job Job) error {
	if _, err := scheduler.cron.AddFunc(spec, func() { scheduler.run(name, job) }); err != nil {
		return fmt.Errorf("jobs_register_%s_failed: %w", name, err)
	}
	return nil
}

// Start begins dispatching in the background.
func (scheduler *Scheduler) Start() {
	scheduler.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx expires.
func (scheduler *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-scheduler.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes one job and logs the outcome.
func (scheduler *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduler.timeout)
	defer cancel()

	started := time.Now()
	err := job(ctx)

	attrs := []any{
		slog.String("job", name),
		slog.Duration("duration", time.Since(started)),
	}
	if err != nil {
		scheduler.logger.ErrorContext(ctx, "job_failed", append(attrs, slog.Any("error", err))...)
		return
	}
	scheduler.logger.InfoContext(ctx, "job_completed", attrs...)
}
