// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"context"
	"net/http"

	"github.com/olegiv/socialfeed/internal/model"
)

// API paths for account endpoints.
const (
	PathLogin    = "/auth/login/"
	PathRegister = "/auth/register/"
	PathLogout   = "/auth/logout/"
	PathProfile  = "/auth/profile/"
	PathUsers    = "/auth/users/"
)

// Login exchanges credentials for a token pair and the user record.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	var result model.AuthResult
	if err := c.doJSON(ctx, http.MethodPost, PathLogin, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a new account. It does not authenticate.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodPost, PathRegister, reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout invalidates the refresh credential server-side.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	var body any
	if refresh != "" {
		body = map[string]string{"refresh": refresh}
	}
	return c.doJSON(ctx, http.MethodPost, PathLogout, body, nil)
}

// Profile returns the user owning the credential in ctx.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, PathProfile, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sends the editable subset and returns the authoritative user.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodPatch, PathProfile, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserStats returns aggregate user statistics. Staff only.
func (c *Client) UserStats(ctx context.Context) (*model.UserStats, error) {
	var stats model.UserStats
	if err := c.doJSON(ctx, http.MethodGet, PathUsers, nil, &stats); err != nil {
		return nil, err
	}
	if stats.Users == nil {
		stats.Users = []model.User{}
	}
	return &stats, nil
}
