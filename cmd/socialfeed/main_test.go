// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/config"
	"github.com/olegiv/socialfeed/internal/imaging"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/testutil"
	"github.com/olegiv/socialfeed/internal/testutil/fakeapi"
	"github.com/olegiv/socialfeed/internal/version"
	"github.com/olegiv/socialfeed/web"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	fake := fakeapi.New(t)
	db := testutil.TestDB(t)
	logger := testutil.TestLoggerSilent()

	cfg := &config.Config{
		APIBaseURL:    fake.URL,
		APITimeout:    5,
		SessionSecret: strings.Repeat("k3y-", 10),
		ServerPort:    8080,
		Env:           "development",
		SiteName:      "Test Feed",
	}

	api, err := apiclient.New(apiclient.Config{BaseURL: fake.URL, Logger: logger})
	require.NoError(t, err)

	sm := session.NewManager(db, session.Options{IsDev: true})
	sessions := session.NewStore(sm, api, session.Config{RevalidateAfter: time.Minute, Logger: logger})

	templates, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	renderer, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm, IsDev: true})
	require.NoError(t, err)

	staticFS, err := fs.Sub(web.Static, "static/dist")
	require.NoError(t, err)

	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	t.Cleanup(lp.Close)

	return newRouter(routerDeps{
		cfg:             cfg,
		db:              db,
		sessionManager:  sm,
		sessions:        sessions,
		api:             api,
		renderer:        renderer,
		images:          imaging.NewProcessor(imaging.Config{}),
		loginProtection: lp,
		staticFS:        staticFS,
		version:         version.Info{Version: "v0.0.0-test"},
		logger:          slog.New(slog.DiscardHandler),
		mediaOrigin:     mediaOrigin(fake.URL),
	})
}

func TestRouter_GuardsFeed(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestRouter_LoginPage(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Test Feed")
}

func TestRouter_Static(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=86400", rr.Header().Get("Cache-Control"))
}

func TestRouter_Health(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
}

func TestRouter_NotFoundRedirects(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestMediaOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8000/api", "http://localhost:8000"},
		{"https://api.example.com/v1/", "https://api.example.com"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mediaOrigin(tt.in), tt.in)
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
