// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/validate"
)

// AuthHandler handles the login, registration and logout routes.
type AuthHandler struct {
	renderer        *render.Renderer
	store           *session.Store
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(renderer *render.Renderer, store *session.Store, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		renderer:        renderer,
		store:           store,
		loginProtection: lp,
	}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, r, tmplLogin, render.TemplateData{
		Title: "Sign in",
		Form:  model.Credentials{},
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	creds := model.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}

	if h.loginProtection != nil && creds.Username != "" {
		if locked, remaining := h.loginProtection.IsLocked(creds.Username); locked {
			slog.Warn("login attempt on locked account",
				"category", model.EventCategoryAuth,
				"username", creds.Username,
			)
			h.loginFailed(w, r, creds, http.StatusTooManyRequests,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)), nil)
			return
		}
	}

	_, err := h.store.Login(r.Context(), creds)
	if err != nil {
		var authErr *session.AuthError
		if !errors.As(err, &authErr) {
			logAndInternalError(w, "login failed", "error", err)
			return
		}

		status := http.StatusUnprocessableEntity
		msg := authErr.Message
		switch {
		case apiclient.IsKind(err, apiclient.KindAuth):
			status = http.StatusUnauthorized
			slog.Warn("login failed: invalid credentials",
				"category", model.EventCategoryAuth,
				"username", creds.Username,
			)
			if h.loginProtection != nil {
				if locked, lockDuration := h.loginProtection.RecordFailedAttempt(creds.Username); locked {
					msg = fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration))
				} else if remaining := h.loginProtection.RemainingAttempts(creds.Username); remaining > 0 && remaining <= 3 {
					msg = fmt.Sprintf("%s %d attempts remaining.", msg, remaining)
				}
			}
		case apiclient.IsKind(err, apiclient.KindNetwork), apiclient.IsKind(err, apiclient.KindServer):
			status = http.StatusBadGateway
			slog.Error("login failed: upstream unavailable",
				"category", model.EventCategoryUpstream,
				"error", err,
			)
		}

		h.loginFailed(w, r, creds, status, msg, authErr.Fields)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(creds.Username)
	}
	http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, creds model.Credentials, status int, msg string, fields map[string]string) {
	creds.Password = ""
	if err := h.renderer.RenderStatus(w, r, status, tmplLogin, render.TemplateData{
		Title:     "Sign in",
		Form:      creds,
		Errors:    validate.Errors(fields),
		Flash:     msg,
		FlashType: render.FlashError,
	}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, r, tmplRegister, render.TemplateData{
		Title: "Create account",
		Form:  model.Registration{},
	})
}

// Register handles the registration form submission. A new account is not
// signed in; the user is sent to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectRegister) {
		return
	}

	reg := model.Registration{
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password2"),
		FirstName:       strings.TrimSpace(r.FormValue("first_name")),
		LastName:        strings.TrimSpace(r.FormValue("last_name")),
	}

	if _, err := h.store.Register(r.Context(), reg); err != nil {
		var authErr *session.AuthError
		if !errors.As(err, &authErr) {
			logAndInternalError(w, "registration failed", "error", err)
			return
		}

		status := http.StatusUnprocessableEntity
		if apiclient.IsKind(err, apiclient.KindNetwork) || apiclient.IsKind(err, apiclient.KindServer) {
			status = http.StatusBadGateway
			slog.Error("registration failed: upstream unavailable",
				"category", model.EventCategoryUpstream,
				"error", err,
			)
		}

		reg.Password = ""
		reg.PasswordConfirm = ""
		if err := h.renderer.RenderStatus(w, r, status, tmplRegister, render.TemplateData{
			Title:     "Create account",
			Form:      reg,
			Errors:    validate.Errors(authErr.Fields),
			Flash:     authErr.Message,
			FlashType: render.FlashError,
		}); err != nil {
			logAndInternalError(w, "failed to render registration page", "error", err)
		}
		return
	}

	flashSuccess(w, r, h.renderer, redirectLogin, "Account created. Please sign in.")
}

// Logout signs the user out. It never fails from the user's point of view.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	h.store.Logout(r.Context())
	if userID != 0 {
		slog.Info("user logged out", "category", model.EventCategoryAuth, "user_id", userID)
	}
	flashSuccess(w, r, h.renderer, redirectLogin, "You have been signed out.")
}

// formatDuration formats a lockout duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		secs := max(int(d.Round(time.Second).Seconds()), 1)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int(d.Round(time.Minute).Minutes())
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
