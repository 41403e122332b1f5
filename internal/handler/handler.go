// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the social feed frontend.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/socialfeed/internal/feed"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
)

// API is the part of the REST client used by the view handlers.
type API interface {
	feed.API
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error)
	UserStats(ctx context.Context) (*model.UserStats, error)
}

// views holds the dependencies shared by the page handlers.
type views struct {
	renderer *render.Renderer
	store    *session.Store
	api      API
	logger   *slog.Logger
}

func newViews(renderer *render.Renderer, store *session.Store, api API, logger *slog.Logger) views {
	if logger == nil {
		logger = slog.Default()
	}
	return views{renderer: renderer, store: store, api: api, logger: logger}
}

func (v *views) fail(w http.ResponseWriter, r *http.Request, fallback string, err error) {
	apiFailure(w, r, v.renderer, v.store, fallback, err)
}
