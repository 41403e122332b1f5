// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/store"
)

func TestAdmin_NonAdminRedirectedHome(t *testing.T) {
	app := newTestApp(t)
	app.fake.AddUser("alice", "password1", false)
	app.login("alice", "password1")

	res := app.get(RouteAdmin)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteRoot, res.location)
	assert.Zero(t, app.fake.Requests(http.MethodGet, "/auth/users/"))

	res = app.get("/admin/posts/1/delete")
	assert.Equal(t, RouteRoot, res.location)
}

func TestAdmin_Dashboard(t *testing.T) {
	app := newTestApp(t)
	app.fake.AddUser("root", "password1", true)
	app.fake.AddUser("alice", "password1", false)
	app.fake.AddPost("alice", "Alice's post", "x")

	_, err := store.New(app.db).CreateEvent(context.Background(), store.CreateEventParams{
		Level:    model.EventLevelWarning,
		Category: model.EventCategoryUpstream,
		Message:  "upstream slow",
	})
	require.NoError(t, err)

	app.login("root", "password1")

	res := app.get(RouteAdmin)
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Contains(t, res.body, "Total users")
	assert.Contains(t, res.body, "alice@example.com")
	assert.Contains(t, res.body, "Alice&#39;s post")
	assert.Contains(t, res.body, "upstream slow")
	assert.Contains(t, res.body, `href="/admin"`)
	assert.Equal(t, 1, app.fake.Requests(http.MethodGet, "/auth/users/"))
	assert.Equal(t, 1, app.fake.Requests(http.MethodGet, "/posts/"))
}

func TestAdmin_DemotedUserRedirectedHome(t *testing.T) {
	app := newTestApp(t)
	app.fake.AddUser("root", "password1", true)
	app.login("root", "password1")
	app.fake.SetStaff("root", false)

	res := app.get(RouteAdmin)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteRoot, res.location, "an api 403 inside the admin view goes home")
}

func TestAdmin_PostsFailureKeepsStats(t *testing.T) {
	app := newTestApp(t)
	app.fake.AddUser("root", "password1", true)
	app.login("root", "password1")
	app.fake.FailPosts(true)

	res := app.get(RouteAdmin)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "root@example.com")
	assert.Contains(t, res.body, "No posts.")
}

func TestAdmin_DeleteAnyPost(t *testing.T) {
	app := newTestApp(t)
	app.fake.AddUser("root", "password1", true)
	app.fake.AddUser("alice", "password1", false)
	p := app.fake.AddPost("alice", "Spam", "x")
	app.login("root", "password1")
	path := fmt.Sprintf("/admin/posts/%d/delete", p.ID)

	res := app.get(path)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Spam")

	res = app.postForm(path, url.Values{formConfirm: {formConfirmYes}})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteAdmin, res.location)
	assert.Empty(t, app.fake.Posts())
}
