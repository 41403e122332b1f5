// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session holds the per-browser authentication state and the
// scs-backed Store that restores, creates and clears it.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"

	"github.com/olegiv/socialfeed/internal/model"
)

// DefaultLifetime is the session lifetime when Options.Lifetime is zero.
const DefaultLifetime = 24 * time.Hour

// Options configures the session manager.
type Options struct {
	Lifetime time.Duration
	IsDev    bool
	// Redis selects the Redis backend when non-nil.
	Redis *redis.Client
}

// NewManager creates a session manager. Sessions are kept in Redis when
// opts.Redis is set, in the SQLite sessions table when db is non-nil, and in
// memory otherwise.
func NewManager(db *sql.DB, opts Options) *scs.SessionManager {
	sm := scs.New()

	switch {
	case opts.Redis != nil:
		sm.Store = goredisstore.New(opts.Redis)
	case db != nil:
		sm.Store = sqlite3store.New(db)
	default:
		sm.Store = memstore.New()
	}

	sm.Lifetime = opts.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = DefaultLifetime
	}
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !opts.IsDev
	if !opts.IsDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// State is the authentication state a view is rendered in.
type State int

// Session states.
const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
	StateAdmin
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateAdmin:
		return "admin"
	default:
		return "loading"
	}
}

// Session is an immutable snapshot of the current browser's identity.
// Admin status is derived from the user's staff flag and never stored.
type Session struct {
	User  *model.User
	ready bool
}

// Ready reports whether initialization has finished.
func (s *Session) Ready() bool {
	return s != nil && s.ready
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	return s.Ready() && s.User != nil
}

// IsAdmin reports whether the signed-in user is staff.
func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin()
}

// UserID returns the signed-in user's ID, or 0.
func (s *Session) UserID() int64 {
	if !s.IsAuthenticated() {
		return 0
	}
	return s.User.ID
}

// State returns the session state.
func (s *Session) State() State {
	switch {
	case !s.Ready():
		return StateLoading
	case s.IsAdmin():
		return StateAdmin
	case s.IsAuthenticated():
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// Anonymous returns a ready, unauthenticated Session.
func Anonymous() *Session {
	return &Session{ready: true}
}

// Authenticated returns a ready Session for u.
func Authenticated(u model.User) *Session {
	return &Session{User: &u, ready: true}
}
