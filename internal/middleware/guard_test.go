// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/session"
)

func TestDecide(t *testing.T) {
	user := session.Authenticated(model.User{ID: 1})
	admin := session.Authenticated(model.User{ID: 2, IsStaff: true})

	tests := []struct {
		name      string
		s         *session.Session
		adminOnly bool
		want      Decision
	}{
		{"nil session", nil, false, DecisionLoading},
		{"uninitialized", &session.Session{}, true, DecisionLoading},
		{"anonymous", session.Anonymous(), false, DecisionLogin},
		{"anonymous admin view", session.Anonymous(), true, DecisionLogin},
		{"user", user, false, DecisionRender},
		{"user admin view", user, true, DecisionHome},
		{"admin", admin, false, DecisionRender},
		{"admin admin view", admin, true, DecisionRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.s, tt.adminOnly); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name         string
		s            *session.Session
		mw           func(http.Handler) http.Handler
		wantCode     int
		wantLocation string
	}{
		{"loading", nil, RequireAuth, http.StatusServiceUnavailable, ""},
		{"anonymous redirects to login", session.Anonymous(), RequireAuth, http.StatusSeeOther, "/login"},
		{"user renders", session.Authenticated(model.User{ID: 1}), RequireAuth, http.StatusOK, ""},
		{"user on admin redirects home", session.Authenticated(model.User{ID: 1}), RequireAdmin, http.StatusSeeOther, "/"},
		{"admin on admin renders", session.Authenticated(model.User{ID: 1, IsStaff: true}), RequireAdmin, http.StatusOK, ""},
		{"anonymous on admin redirects to login", session.Anonymous(), RequireAdmin, http.StatusSeeOther, "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.s != nil {
				req = withSession(req, tt.s)
			}
			rr := httptest.NewRecorder()

			tt.mw(handler).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if loc := rr.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
		})
	}
}

func TestGuard_JSONRequests(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		s        *session.Session
		mw       func(http.Handler) http.Handler
		wantCode int
	}{
		{"expired session", session.Anonymous(), RequireAuth, http.StatusUnauthorized},
		{"user on admin", session.Authenticated(model.User{ID: 1}), RequireAdmin, http.StatusForbidden},
		{"user renders", session.Authenticated(model.User{ID: 1}), RequireAuth, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(http.MethodPost, "/posts/1/like", nil), tt.s)
			req.Header.Set("Accept", "application/json")
			rr := httptest.NewRecorder()

			tt.mw(handler).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if loc := rr.Header().Get("Location"); loc != "" {
				t.Errorf("Location = %q, JSON requests must not be redirected", loc)
			}
			if tt.wantCode == http.StatusOK {
				return
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Success || body.Error == "" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestGuard_LoadingPlaceholder(t *testing.T) {
	called := false
	h := RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Error("view rendered before session was ready")
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(rr.Body.String(), "Loading") {
		t.Errorf("body = %q, want loading placeholder", rr.Body.String())
	}
}

func TestGuard_RoleChangeTakesEffectNextRequest(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	u := model.User{ID: 5, IsStaff: true}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/admin", nil), session.Authenticated(u)))
	if rr.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rr.Code)
	}

	u.IsStaff = false
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/admin", nil), session.Authenticated(u)))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Errorf("demoted user got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestRedirectAuthenticated(t *testing.T) {
	h := RedirectAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/login", nil), session.Anonymous()))
	if rr.Code != http.StatusOK {
		t.Errorf("anonymous status = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/login", nil),
		session.Authenticated(model.User{ID: 1})))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Errorf("signed-in status = %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestDecision_String(t *testing.T) {
	for d, want := range map[Decision]string{
		DecisionLoading: "loading",
		DecisionLogin:   "login",
		DecisionHome:    "home",
		DecisionRender:  "render",
	} {
		if got := d.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
