// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "feed-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"sessions", "events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}

	// Running again is a no-op.
	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}

func TestCreateEvent(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	e, err := q.CreateEvent(ctx, CreateEventParams{
		Level:    "warning",
		Category: "auth",
		Message:  "login failed",
		UserID:   sql.NullInt64{Int64: 7, Valid: true},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if e.ID == 0 {
		t.Error("event.ID should not be 0")
	}
	if e.Metadata != "{}" {
		t.Errorf("Metadata = %q, want {}", e.Metadata)
	}
	if !e.UserID.Valid || e.UserID.Int64 != 7 {
		t.Errorf("UserID = %+v", e.UserID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestListEvents_NewestFirst(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, msg := range []string{"first", "second", "third"} {
		if _, err := q.CreateEvent(ctx, CreateEventParams{
			Level:     "error",
			Category:  "upstream",
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 2})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "third" || events[1].Message != "second" {
		t.Errorf("order = %q, %q", events[0].Message, events[1].Message)
	}

	events, err = q.ListEvents(ctx, ListEventsParams{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Message != "first" {
		t.Errorf("page 2 = %+v", events)
	}
}

func TestListEventsByLevel(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	for _, level := range []string{"warning", "error", "warning"} {
		if _, err := q.CreateEvent(ctx, CreateEventParams{Level: level, Category: "system", Message: level}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := q.ListEventsByLevel(ctx, ListEventsByLevelParams{Level: "warning", Limit: 10})
	if err != nil {
		t.Fatalf("ListEventsByLevel: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len = %d, want 2", len(events))
	}

	empty, err := q.ListEventsByLevel(ctx, ListEventsByLevelParams{Level: "info", Limit: 10})
	if err != nil {
		t.Fatalf("ListEventsByLevel: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestDeleteEventsBefore(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	now := time.Now().UTC()
	old := now.Add(-60 * 24 * time.Hour)
	for _, at := range []time.Time{old, old.Add(time.Hour), now} {
		if _, err := q.CreateEvent(ctx, CreateEventParams{Level: "warning", Category: "system", Message: "x", CreatedAt: at}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	n, err := q.DeleteEventsBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteEventsBefore: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	count, err := q.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if count != 1 {
		t.Errorf("remaining = %d, want 1", count)
	}
}

func TestWithTx(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if _, err := New(db).WithTx(tx).CreateEvent(ctx, CreateEventParams{Level: "info", Category: "system", Message: "rolled back"}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	count, err := New(db).CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after rollback", count)
	}
}
