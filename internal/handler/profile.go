// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/validate"
)

// ProfileHandler handles the profile view.
type ProfileHandler struct {
	views
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(renderer *render.Renderer, store *session.Store, api API, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{views: newViews(renderer, store, api, logger)}
}

// Show handles GET /profile. The form is prefilled from the session user.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.renderProfile(w, r, http.StatusOK, model.ProfileUpdateFromUser(middleware.GetUser(r)), nil)
}

// Update handles POST /profile. Only the editable fields are sent; the
// API's answer is merged into the session.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectProfile) {
		return
	}

	update := model.ProfileUpdate{
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		Bio:       strings.TrimSpace(r.FormValue("bio")),
	}

	if errs := validate.Struct(update); errs != nil {
		h.renderProfile(w, r, http.StatusUnprocessableEntity, update, errs)
		return
	}

	u, err := h.api.UpdateProfile(r.Context(), update)
	if err != nil {
		if fields := apiclient.FieldErrors(err); apiclient.IsKind(err, apiclient.KindValidation) && len(fields) > 0 {
			h.renderProfile(w, r, http.StatusUnprocessableEntity, update, validate.Errors(fields))
			return
		}
		h.fail(w, r, redirectProfile, err)
		return
	}

	h.store.UpdateUser(r.Context(), model.PatchFromUser(*u))
	slog.Info("profile updated", "category", model.EventCategoryUser, "user_id", u.ID)
	flashSuccess(w, r, h.renderer, redirectProfile, "Profile updated.")
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, status int, form model.ProfileUpdate, errs validate.Errors) {
	if err := h.renderer.RenderStatus(w, r, status, tmplProfile, render.TemplateData{
		Title:  "Profile",
		Form:   form,
		Errors: errs,
	}); err != nil {
		logAndInternalError(w, "failed to render profile", "error", err)
	}
}
