// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for session loading,
// route guarding, and request context handling.
package middleware

import (
	"context"
	"net/http"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeySiteName    ContextKey = "site_name"
	ContextKeyRequestPath ContextKey = "request_path"
)

// DefaultSiteName is used when no site name is configured.
const DefaultSiteName = "Social Platform"

// LoadSession creates middleware that initializes the browser's Session and
// stores it in the request context together with the API credential.
// It must run inside the scs LoadAndSave middleware.
func LoadSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s := store.Initialize(ctx)

			ctx = session.NewContext(ctx, s)
			if s.IsAuthenticated() {
				ctx = apiclient.WithToken(ctx, store.Token(ctx))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the Session loaded by LoadSession, or nil.
func GetSession(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}

// GetUser retrieves the signed-in user from the request context.
// Returns nil if no user is signed in.
func GetUser(r *http.Request) *model.User {
	s := GetSession(r)
	if !s.IsAuthenticated() {
		return nil
	}
	return s.User
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	return GetSession(r).UserID()
}

// SiteName creates middleware that stores the configured site name in context.
func SiteName(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ContextKeySiteName, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSiteName retrieves the site name from the request context.
// Returns DefaultSiteName if not found.
func GetSiteName(r *http.Request) string {
	siteName, ok := r.Context().Value(ContextKeySiteName).(string)
	if !ok || siteName == "" {
		return DefaultSiteName
	}
	return siteName
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
