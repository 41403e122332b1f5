// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/feed"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/store"
)

// recentEventsLimit is how many event log entries the dashboard lists.
const recentEventsLimit = 20

// AdminPage is the view model of the admin dashboard.
type AdminPage struct {
	Stats     *model.UserStats
	Posts     []*feed.PostItem
	Events    []store.Event
	LoadError string
}

// AdminHandler handles the admin panel.
type AdminHandler struct {
	views
	queries *store.Queries
}

// NewAdminHandler creates a new AdminHandler. db may be nil, in which case
// the event log is not shown.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, sessions *session.Store, api API, logger *slog.Logger) *AdminHandler {
	h := &AdminHandler{views: newViews(renderer, sessions, api, logger)}
	if db != nil {
		h.queries = store.New(db)
	}
	return h
}

// Dashboard handles GET /admin. User statistics and posts are fetched in
// parallel; a failed fetch leaves its section empty.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		g        errgroup.Group
		stats    *model.UserStats
		statsErr error
		list     = feed.NewPostList(h.api, h.logger)
	)
	g.Go(func() error {
		stats, statsErr = h.api.UserStats(ctx)
		return statsErr
	})
	g.Go(func() error {
		return list.Load(ctx)
	})
	err := g.Wait()

	for _, e := range []error{statsErr, list.Err()} {
		switch apiclient.KindOf(e) {
		case apiclient.KindAuth, apiclient.KindAuthorization:
			h.fail(w, r, redirectAdmin, e)
			return
		}
	}

	page := AdminPage{
		Stats:  stats,
		Posts:  list.Posts(),
		Events: []store.Event{},
	}
	if page.Stats == nil {
		page.Stats = &model.UserStats{Users: []model.User{}}
	}
	if err != nil {
		slog.Error("admin dashboard fetch failed", "category", model.EventCategoryUpstream, "error", err)
		page.LoadError = apiclient.UserMessage(err)
	}

	if h.queries != nil {
		events, err := h.queries.ListEvents(ctx, store.ListEventsParams{Limit: recentEventsLimit})
		if err != nil {
			slog.Error("failed to list events", "error", err)
		} else {
			page.Events = events
		}
	}

	h.renderer.RenderPage(w, r, tmplAdmin, render.TemplateData{
		Title: "Admin",
		Data:  page,
	})
}

// DeleteConfirm handles GET /admin/posts/{id}/delete.
func (h *AdminHandler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	h.confirmDelete(w, r, redirectAdmin, false)
}

// Delete handles POST /admin/posts/{id}/delete. Ownership is not checked;
// the API decides.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.deletePost(w, r, redirectAdmin, false)
}
