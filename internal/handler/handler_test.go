// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/imaging"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/testutil"
	"github.com/olegiv/socialfeed/internal/testutil/fakeapi"
	"github.com/olegiv/socialfeed/internal/version"
	"github.com/olegiv/socialfeed/web"
)

// testApp is the frontend wired against a fake API, driven through a
// cookie-keeping client that does not follow redirects.
type testApp struct {
	t      *testing.T
	fake   *fakeapi.Server
	db     *sql.DB
	server *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithProtection(t, middleware.DefaultLoginProtectionConfig())
}

func newTestAppWithProtection(t *testing.T, lpCfg middleware.LoginProtectionConfig) *testApp {
	t.Helper()

	fake := fakeapi.New(t)
	db := testutil.TestDB(t)
	logger := testutil.TestLoggerSilent()

	api, err := apiclient.New(apiclient.Config{BaseURL: fake.URL, Logger: logger})
	require.NoError(t, err)

	sm := session.NewManager(nil, session.Options{IsDev: true})
	store := session.NewStore(sm, api, session.Config{RevalidateAfter: time.Minute, Logger: logger})

	templates, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	renderer, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm, IsDev: true})
	require.NoError(t, err)

	lp := middleware.NewLoginProtection(lpCfg)
	t.Cleanup(lp.Close)

	authHandler := NewAuthHandler(renderer, store, lp)
	feedHandler := NewFeedHandler(renderer, store, api, imaging.NewProcessor(imaging.Config{}), logger)
	profileHandler := NewProfileHandler(renderer, store, api, logger)
	adminHandler := NewAdminHandler(db, renderer, store, api, logger)
	healthHandler := NewHealthHandler(db, version.Info{Version: "v0.0.0-test"})

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadSession(store))

	r.Get(RouteHealth, healthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RedirectAuthenticated)
		r.Get(RouteLogin, authHandler.LoginForm)
		r.With(lp.Middleware).Post(RouteLogin, authHandler.Login)
		r.Get(RouteRegister, authHandler.RegisterForm)
		r.Post(RouteRegister, authHandler.Register)
	})
	r.Post(RouteLogout, authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get(RouteRoot, feedHandler.List)
		r.Post(RoutePosts, feedHandler.Create)
		r.Post(RoutePostLike, feedHandler.Like)
		r.Get(RoutePostComments, feedHandler.Comments)
		r.Post(RoutePostComments, feedHandler.Comment)
		r.Get(RoutePostDelete, feedHandler.DeleteConfirm)
		r.Post(RoutePostDelete, feedHandler.Delete)
		r.Get(RouteProfile, profileHandler.Show)
		r.Post(RouteProfile, profileHandler.Update)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get(RouteAdmin, adminHandler.Dashboard)
		r.Get(RouteAdminPostDelete, adminHandler.DeleteConfirm)
		r.Post(RouteAdminPostDelete, adminHandler.Delete)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:      t,
		fake:   fake,
		db:     db,
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	body     string
}

func (a *testApp) do(req *http.Request) response {
	a.t.Helper()
	res, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	require.NoError(a.t, err)
	return response{status: res.StatusCode, location: res.Header.Get("Location"), body: string(body)}
}

func (a *testApp) get(path string) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(req)
}

func (a *testApp) postForm(path string, form url.Values) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *testApp) postJSON(path string, form url.Values) (response, map[string]any) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	res := a.do(req)

	var out map[string]any
	require.NoError(a.t, json.Unmarshal([]byte(res.body), &out), res.body)
	return res, out
}

func (a *testApp) postMultipart(path string, fields map[string]string, fileField, filename string, data []byte) response {
	a.t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		require.NoError(a.t, err)
		_, err = part.Write(data)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func (a *testApp) login(username, password string) {
	a.t.Helper()
	res := a.postForm(RouteLogin, url.Values{"username": {username}, "password": {password}})
	require.Equal(a.t, http.StatusSeeOther, res.status, res.body)
	require.Equal(a.t, RouteRoot, res.location)
}

func (a *testApp) getJSON(path string) (response, map[string]any) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	req.Header.Set("Accept", "application/json")
	res := a.do(req)

	var out map[string]any
	require.NoError(a.t, json.Unmarshal([]byte(res.body), &out), res.body)
	return res, out
}
