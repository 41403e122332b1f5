// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/socialfeed/internal/config"
	"github.com/olegiv/socialfeed/internal/handler"
	"github.com/olegiv/socialfeed/internal/imaging"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/version"
)

// staticMaxAge is the browser cache lifetime of embedded assets.
const staticMaxAge = 24 * time.Hour

type routerDeps struct {
	cfg             *config.Config
	db              *sql.DB
	sessionManager  *scs.SessionManager
	sessions        *session.Store
	api             handler.API
	renderer        *render.Renderer
	images          *imaging.Processor
	loginProtection *middleware.LoginProtection
	staticFS        fs.FS
	version         version.Info
	logger          *slog.Logger
	mediaOrigin     string
}

func newRouter(d routerDeps) http.Handler {
	authHandler := handler.NewAuthHandler(d.renderer, d.sessions, d.loginProtection)
	feedHandler := handler.NewFeedHandler(d.renderer, d.sessions, d.api, d.images, d.logger)
	profileHandler := handler.NewProfileHandler(d.renderer, d.sessions, d.api, d.logger)
	adminHandler := handler.NewAdminHandler(d.db, d.renderer, d.sessions, d.api, d.logger)
	healthHandler := handler.NewHealthHandler(d.db, d.version)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig(
		[]byte(d.cfg.SessionSecret),
		d.cfg.IsDevelopment(),
		portString(d.cfg.ServerPort),
	))
	actionLimiter := middleware.NewActionRateLimiter(5, 20)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(d.cfg.UpstreamTimeout() + 20*time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(d.cfg.IsDevelopment(), d.mediaOrigin)))
	r.Use(middleware.RequestPath)
	r.Use(middleware.SiteName(d.cfg.SiteName))

	staticHandler := middleware.StaticCache(staticMaxAge)(
		http.StripPrefix(handler.RouteStatic+"/", http.FileServer(http.FS(d.staticFS))))
	r.Handle(handler.RouteStatic+"/*", staticHandler)

	r.Group(func(r chi.Router) {
		r.Use(d.sessionManager.LoadAndSave)
		r.Use(middleware.LoadSession(d.sessions))

		r.Get(handler.RouteHealth, healthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(csrfMiddleware)

			// Login and registration are only for signed-out users
			r.Group(func(r chi.Router) {
				r.Use(middleware.RedirectAuthenticated)
				r.Get(handler.RouteLogin, authHandler.LoginForm)
				r.With(d.loginProtection.Middleware).Post(handler.RouteLogin, authHandler.Login)
				r.Get(handler.RouteRegister, authHandler.RegisterForm)
				r.With(actionLimiter.Middleware).Post(handler.RouteRegister, authHandler.Register)
			})
			r.Post(handler.RouteLogout, authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get(handler.RouteRoot, feedHandler.List)
				r.Get(handler.RouteProfile, profileHandler.Show)
				r.Get(handler.RoutePostComments, feedHandler.Comments)
				r.Get(handler.RoutePostDelete, feedHandler.DeleteConfirm)

				r.Group(func(r chi.Router) {
					r.Use(actionLimiter.Middleware)
					r.Post(handler.RoutePosts, feedHandler.Create)
					r.Post(handler.RoutePostLike, feedHandler.Like)
					r.Post(handler.RoutePostComments, feedHandler.Comment)
					r.Post(handler.RoutePostDelete, feedHandler.Delete)
					r.Post(handler.RouteProfile, profileHandler.Update)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get(handler.RouteAdmin, adminHandler.Dashboard)
				r.Get(handler.RouteAdminPostDelete, adminHandler.DeleteConfirm)
				r.Post(handler.RouteAdminPostDelete, adminHandler.Delete)
			})
		})
	})

	// Unknown paths go to the feed, which sends signed-out users to the login page
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, handler.RouteRoot, http.StatusSeeOther)
	})

	return r
}
