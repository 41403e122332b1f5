// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/socialfeed/internal/store"
	"github.com/olegiv/socialfeed/internal/testutil"
)

func TestNew(t *testing.T) {
	logger := testutil.TestLoggerSilent()

	s := New(nil, Config{}, logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.cfg.PruneSchedule != DefaultPruneSchedule {
		t.Errorf("PruneSchedule = %q, want default", s.cfg.PruneSchedule)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(nil, Config{EventRetention: time.Hour}, testutil.TestLoggerSilent())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
	s.Stop()
}

func TestScheduler_NoRetentionNoJob(t *testing.T) {
	s := New(nil, Config{}, testutil.TestLoggerSilent())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if n := len(s.cron.Entries()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
	if n, err := s.PruneEvents(context.Background()); n != 0 || err != nil {
		t.Errorf("PruneEvents = %d, %v", n, err)
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(nil, Config{EventRetention: time.Hour, PruneSchedule: "not a cron"}, testutil.TestLoggerSilent())
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_PruneEvents(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	q := store.New(db)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		if _, err := q.CreateEvent(ctx, store.CreateEventParams{
			Level:     "warning",
			Category:  "system",
			Message:   "old",
			CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	s := New(db, Config{EventRetention: 30 * 24 * time.Hour}, testutil.TestLoggerSilent())
	s.now = func() time.Time { return now }

	n, err := s.PruneEvents(ctx)
	if err != nil {
		t.Fatalf("PruneEvents: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	count, _ := q.CountEvents(ctx)
	if count != 1 {
		t.Errorf("remaining = %d, want 1", count)
	}
}
