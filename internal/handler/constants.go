// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the feed.
	RouteRoot = "/"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteRegister is the registration route.
	RouteRegister = "/register"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteProfile is the profile route.
	RouteProfile = "/profile"
	// RouteAdmin is the admin panel.
	RouteAdmin = "/admin"
	// RouteHealth is the health check.
	RouteHealth = "/health"
	// RouteStatic is the prefix of embedded static assets.
	RouteStatic = "/static"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	// RoutePosts is the post collection.
	RoutePosts = "/posts"
	// RoutePostsID is a single post.
	RoutePostsID = RoutePosts + RouteParamID
	// RoutePostLike toggles the viewer's like.
	RoutePostLike = RoutePostsID + "/like"
	// RoutePostComments lists and adds comments.
	RoutePostComments = RoutePostsID + "/comments"
	// RoutePostDelete is the delete confirmation page and action.
	RoutePostDelete = RoutePostsID + "/delete"
	// RouteAdminPostDelete is the admin delete confirmation page and action.
	RouteAdminPostDelete = RouteAdmin + RoutePostDelete
)

const (
	redirectRoot     = RouteRoot
	redirectLogin    = RouteLogin
	redirectRegister = RouteRegister
	redirectProfile  = RouteProfile
	redirectAdmin    = RouteAdmin
)

// Form field names shared by templates and handlers.
const (
	formConfirm    = "confirm"
	formConfirmYes = "yes"
	formImage      = "image"
	formContent    = "content"
)

// Template names.
const (
	tmplLogin      = "auth/login"
	tmplRegister   = "auth/register"
	tmplFeed       = "app/feed"
	tmplPostDelete = "app/post_delete"
	tmplProfile    = "app/profile"
	tmplAdmin      = "admin/dashboard"
)
