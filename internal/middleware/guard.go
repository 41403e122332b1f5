// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/session"
)

// Guard redirect targets.
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Decision is the outcome of evaluating a route guard.
type Decision int

// Guard decisions.
const (
	DecisionLoading Decision = iota // session not initialized yet
	DecisionLogin                   // not signed in
	DecisionHome                    // signed in but not allowed on an admin-only view
	DecisionRender                  // allowed
)

func (d Decision) String() string {
	switch d {
	case DecisionLogin:
		return "login"
	case DecisionHome:
		return "home"
	case DecisionRender:
		return "render"
	default:
		return "loading"
	}
}

// Decide evaluates the guard for a view. The Session is the only input.
func Decide(s *session.Session, adminOnly bool) Decision {
	switch {
	case !s.Ready():
		return DecisionLoading
	case !s.IsAuthenticated():
		return DecisionLogin
	case adminOnly && !s.IsAdmin():
		return DecisionHome
	default:
		return DecisionRender
	}
}

const loadingPage = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p class="loading">Loading...</p></body></html>`

// Guard creates middleware that gates a view on the request's Session.
// It is evaluated on every request.
func Guard(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)

			switch Decide(s, adminOnly) {
			case DecisionLoading:
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(loadingPage))
			case DecisionLogin:
				if acceptsJSON(r) {
					writeGuardJSON(w, http.StatusUnauthorized, "Your session has expired. Please sign in again.")
					return
				}
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			case DecisionHome:
				slog.Warn("access denied",
					"category", model.EventCategoryAuth,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", s.UserID(),
					"remote_addr", r.RemoteAddr,
				)
				if acceptsJSON(r) {
					writeGuardJSON(w, http.StatusForbidden, "You do not have permission to do that.")
					return
				}
				http.Redirect(w, r, HomePath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireAuth gates a view on a signed-in user.
func RequireAuth(next http.Handler) http.Handler {
	return Guard(false)(next)
}

// RequireAdmin gates a view on a signed-in staff user.
func RequireAdmin(next http.Handler) http.Handler {
	return Guard(true)(next)
}

// RedirectAuthenticated sends signed-in users away from the login and
// registration views.
func RedirectAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r).IsAuthenticated() {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// acceptsJSON reports whether the request was sent by the page script.
// A redirect would be followed by fetch and end in an HTML page.
func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeGuardJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
