// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// parseFormOrRedirect parses the request form and redirects with an error message on failure.
// Returns true if parsing succeeded, false if it failed (and redirect was performed).
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, renderer, redirectURL, "Invalid form data")
		return false
	}
	return true
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// parseIDParam reads the {id} URL parameter. It answers 404 for anything
// that is not a positive integer.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// apiFailure reacts to a failed API call made on behalf of the signed-in user.
// A rejected credential clears the session and sends the user to the login
// view; a permission failure in an admin view sends the user home. Anything
// else is flashed on fallback.
func apiFailure(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, store *session.Store, fallback string, err error) {
	switch apiclient.KindOf(err) {
	case apiclient.KindAuth:
		store.Invalidate(r.Context())
		flashError(w, r, renderer, redirectLogin, "Your session has expired. Please sign in again.")
		return
	case apiclient.KindAuthorization:
		slog.Warn("access denied by api",
			"category", model.EventCategoryAuth,
			"path", r.URL.Path,
			"user_id", middleware.GetUserID(r),
		)
		if fallback == redirectAdmin {
			fallback = redirectRoot
		}
	case apiclient.KindNetwork, apiclient.KindServer:
		slog.Error("upstream request failed",
			"category", model.EventCategoryUpstream,
			"path", r.URL.Path,
			"error", err,
		)
	}
	flashError(w, r, renderer, fallback, apiclient.UserMessage(err))
}
