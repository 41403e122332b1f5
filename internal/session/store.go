// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/validate"
)

// Session data keys.
const (
	keyAccess     = "feed_access"
	keyRefresh    = "feed_refresh"
	keyUser       = "feed_user"
	keyResolvedAt = "feed_resolved_at"
)

// API is the subset of the REST client the Store needs.
type API interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (*model.User, error)
	Logout(ctx context.Context, refresh string) error
	Profile(ctx context.Context) (*model.User, error)
}

// AuthError is returned by Login and Register. Message is safe to display.
type AuthError struct {
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Config configures a Store.
type Config struct {
	// RevalidateAfter is how long a stored user snapshot is trusted before
	// the credential is resolved against the API again. Zero always resolves.
	RevalidateAfter time.Duration
	Logger          *slog.Logger
}

// Store owns the session lifecycle: restore, login, logout and profile merge.
// State lives in the scs session so every mutation is committed once, with the response.
type Store struct {
	sm              *scs.SessionManager
	api             API
	revalidateAfter time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewStore creates a Store.
func NewStore(sm *scs.SessionManager, api API, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sm:              sm,
		api:             api,
		revalidateAfter: cfg.RevalidateAfter,
		logger:          logger,
		now:             time.Now,
	}
}

// Manager returns the underlying session manager.
func (s *Store) Manager() *scs.SessionManager {
	return s.sm
}

// Initialize restores the persisted credential and returns a ready Session.
// Failures leave the Session unauthenticated and are only logged.
func (s *Store) Initialize(ctx context.Context) *Session {
	token := s.sm.GetString(ctx, keyAccess)
	if token == "" {
		return Anonymous()
	}

	if tokenExpired(token, s.now()) {
		s.logger.Debug("dropping expired credential", "category", model.EventCategoryAuth)
		s.clear(ctx)
		return Anonymous()
	}

	if u, ok := s.snapshot(ctx); ok {
		resolvedAt := time.Unix(s.sm.GetInt64(ctx, keyResolvedAt), 0)
		if s.now().Sub(resolvedAt) < s.revalidateAfter {
			return Authenticated(u)
		}
	}

	u, err := s.api.Profile(apiclient.WithToken(ctx, token))
	if err != nil {
		if apiclient.IsKind(err, apiclient.KindAuth) {
			s.logger.Info("stored credential rejected", "category", model.EventCategoryAuth)
			s.clear(ctx)
		} else {
			s.logger.Warn("resolving stored credential failed",
				"category", model.EventCategoryUpstream, "error", err)
		}
		return Anonymous()
	}

	s.putUser(ctx, *u)
	s.sm.Put(ctx, keyResolvedAt, s.now().Unix())
	return Authenticated(*u)
}

// Current returns the Session recorded in the session data, without network calls.
func (s *Store) Current(ctx context.Context) *Session {
	if s.sm.GetString(ctx, keyAccess) == "" {
		return Anonymous()
	}
	u, ok := s.snapshot(ctx)
	if !ok {
		return Anonymous()
	}
	return Authenticated(u)
}

// Token returns the stored access credential.
func (s *Store) Token(ctx context.Context) string {
	return s.sm.GetString(ctx, keyAccess)
}

// Login authenticates against the API. On success the session token is
// renewed and the credential stored; on failure the session is left
// unauthenticated and an *AuthError is returned.
func (s *Store) Login(ctx context.Context, creds model.Credentials) (*Session, error) {
	if errs := validate.Struct(creds); errs != nil {
		s.clear(ctx)
		return Anonymous(), &AuthError{Message: "Please enter your username and password.", Fields: errs}
	}

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		s.clear(ctx)
		msg := apiclient.UserMessage(err)
		if apiclient.IsKind(err, apiclient.KindAuth) {
			msg = "Invalid username or password."
		}
		return Anonymous(), &AuthError{Message: msg, Fields: apiclient.FieldErrors(err), Err: err}
	}

	if err := s.sm.RenewToken(ctx); err != nil {
		s.clear(ctx)
		return Anonymous(), &AuthError{Message: "Something went wrong. Please try again.", Err: err}
	}

	s.sm.Put(ctx, keyAccess, res.Access)
	s.sm.Put(ctx, keyRefresh, res.Refresh)
	s.putUser(ctx, res.User)
	s.sm.Put(ctx, keyResolvedAt, s.now().Unix())

	s.logger.Info("user logged in", "category", model.EventCategoryAuth, "user_id", res.User.ID)
	return Authenticated(res.User), nil
}

// Register creates an account. It never authenticates: the caller sends the
// user to the login view.
func (s *Store) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	if errs := validate.Struct(reg); errs != nil {
		return nil, &AuthError{Message: "Please correct the errors below.", Fields: errs}
	}

	u, err := s.api.Register(ctx, reg)
	if err != nil {
		return nil, &AuthError{
			Message: apiclient.UserMessage(err),
			Fields:  apiclient.FieldErrors(err),
			Err:     err,
		}
	}

	s.logger.Info("user registered", "category", model.EventCategoryAuth, "user_id", u.ID)
	return u, nil
}

// Logout invalidates the credential upstream when possible and then clears
// the session regardless of the outcome.
func (s *Store) Logout(ctx context.Context) *Session {
	access := s.sm.GetString(ctx, keyAccess)
	refresh := s.sm.GetString(ctx, keyRefresh)

	if access != "" || refresh != "" {
		if err := s.api.Logout(apiclient.WithToken(ctx, access), refresh); err != nil {
			s.logger.Warn("logout: upstream invalidation failed",
				"category", model.EventCategoryAuth, "error", err)
		}
	}

	if err := s.sm.Destroy(ctx); err != nil {
		s.logger.Error("logout: destroying session", "error", err)
		s.clear(ctx)
	}
	return Anonymous()
}

// UpdateUser merges patch into the stored user and returns the new Session.
// The staff flag cannot be changed this way.
func (s *Store) UpdateUser(ctx context.Context, patch model.UserPatch) *Session {
	u, ok := s.snapshot(ctx)
	if !ok || s.sm.GetString(ctx, keyAccess) == "" {
		return Anonymous()
	}
	patch.Apply(&u)
	s.putUser(ctx, u)
	return Authenticated(u)
}

// Invalidate forgets the credential after the API rejected it mid-request.
func (s *Store) Invalidate(ctx context.Context) {
	s.logger.Info("credential rejected by api, clearing session", "category", model.EventCategoryAuth)
	s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) {
	s.sm.Remove(ctx, keyAccess)
	s.sm.Remove(ctx, keyRefresh)
	s.sm.Remove(ctx, keyUser)
	s.sm.Remove(ctx, keyResolvedAt)
}

// snapshot decodes the stored user. The user is kept as a JSON string so the
// gob codec of scs needs no type registration.
func (s *Store) snapshot(ctx context.Context) (model.User, bool) {
	raw := s.sm.GetString(ctx, keyUser)
	if raw == "" {
		return model.User{}, false
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("corrupt user snapshot in session", "error", err)
		return model.User{}, false
	}
	return u, true
}

func (s *Store) putUser(ctx context.Context, u model.User) {
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("encoding user snapshot", "error", err)
		return
	}
	s.sm.Put(ctx, keyUser, string(data))
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque or unparsable tokens are left for the API to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
