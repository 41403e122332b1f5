// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping of the local database.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/store"
)

// DefaultPruneSchedule runs the event log pruning once a night.
const DefaultPruneSchedule = "30 3 * * *"

// Config controls the housekeeping jobs.
type Config struct {
	// EventRetention is how long event log rows are kept. Zero disables pruning.
	EventRetention time.Duration
	// PruneSchedule is a standard 5-field cron expression.
	PruneSchedule string
}

// Scheduler handles scheduled housekeeping tasks.
type Scheduler struct {
	db     *sql.DB
	cron   *cron.Cron
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new scheduler instance.
func New(db *sql.DB, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = DefaultPruneSchedule
	}
	return &Scheduler{
		db:     db,
		cron:   cron.New(),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if s.cfg.EventRetention > 0 {
		_, err := s.cron.AddFunc(s.cfg.PruneSchedule, func() {
			if _, err := s.PruneEvents(context.Background()); err != nil {
				s.logger.Error("failed to prune event log", "category", model.EventCategorySystem, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("adding prune job %q: %w", s.cfg.PruneSchedule, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PruneEvents deletes event log rows older than the retention period.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.cfg.EventRetention <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.cfg.EventRetention)
	n, err := store.New(s.db).DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.logger.Info("pruned event log", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}
