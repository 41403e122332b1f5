// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/feed"
	"github.com/olegiv/socialfeed/internal/imaging"
	"github.com/olegiv/socialfeed/internal/middleware"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/render"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/validate"
)

// multipartMemory is how much of a post form is buffered in memory.
const multipartMemory = 8 << 20

// FeedPage is the view model of the feed.
type FeedPage struct {
	Posts     []*feed.PostItem
	LoadError string
}

// DeletePage is the view model of a delete confirmation page.
type DeletePage struct {
	Item   *feed.PostItem
	Prompt string
	Action string
	Cancel string
}

// FeedHandler handles the feed and the per-post actions.
type FeedHandler struct {
	views
	images *imaging.Processor
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(renderer *render.Renderer, store *session.Store, api API, images *imaging.Processor, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		views:  newViews(renderer, store, api, logger),
		images: images,
	}
}

// List handles GET / - the post feed with the creation sidebar.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadPosts(w, r)
	if !ok {
		return
	}
	h.renderFeed(w, r, http.StatusOK, list, model.NewPost{}, nil)
}

// loadPosts fetches the feed. A rejected credential is handled here; any
// other failure yields an empty list.
func (h *FeedHandler) loadPosts(w http.ResponseWriter, r *http.Request) (*feed.PostList, bool) {
	list := feed.NewPostList(h.api, h.logger)
	if err := list.Load(r.Context()); err != nil && apiclient.IsKind(err, apiclient.KindAuth) {
		h.fail(w, r, redirectLogin, err)
		return nil, false
	}
	return list, true
}

func (h *FeedHandler) renderFeed(w http.ResponseWriter, r *http.Request, status int, list *feed.PostList, form model.NewPost, errs validate.Errors) {
	page := FeedPage{Posts: list.Posts()}
	if list.Len() == 0 && list.Err() != nil {
		page.LoadError = apiclient.UserMessage(list.Err())
	}
	form.Image = nil

	if err := h.renderer.RenderStatus(w, r, status, tmplFeed, render.TemplateData{
		Title:  "Feed",
		Data:   page,
		Form:   form,
		Errors: errs,
	}); err != nil {
		logAndInternalError(w, "failed to render feed", "error", err)
	}
}

// Create handles POST /posts - the sidebar creation form.
func (h *FeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxBytes()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			flashError(w, r, h.renderer, redirectRoot, "The uploaded file is too large.")
			return
		}
		flashError(w, r, h.renderer, redirectRoot, "Invalid form data")
		return
	}

	post := model.NewPost{
		Title:   r.FormValue("title"),
		Content: r.FormValue(formContent),
	}

	errs := validate.Errors{}
	upload, msg := h.readImage(r)
	if msg != "" {
		errs["image"] = msg
	}
	post.Image = upload

	if len(errs) == 0 {
		list := feed.NewPostList(h.api, h.logger)
		_, err := list.Create(r.Context(), post)
		if err == nil {
			flashSuccess(w, r, h.renderer, redirectRoot, "Post published.")
			return
		}

		var invalid *feed.InvalidPostError
		switch {
		case errors.As(err, &invalid):
			errs = invalid.Fields
		case apiclient.IsKind(err, apiclient.KindValidation) && len(apiclient.FieldErrors(err)) > 0:
			errs = apiclient.FieldErrors(err)
		default:
			h.fail(w, r, redirectRoot, err)
			return
		}
	}

	list, ok := h.loadPosts(w, r)
	if !ok {
		return
	}
	h.renderFeed(w, r, http.StatusUnprocessableEntity, list, post, errs)
}

// readImage returns the processed upload, or nil when none was sent. A
// non-empty message describes why the file was rejected.
func (h *FeedHandler) readImage(r *http.Request) (*model.Upload, string) {
	file, header, err := r.FormFile(formImage)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, ""
		}
		return nil, "Could not read the uploaded file."
	}
	defer func() { _ = file.Close() }()

	if header.Size == 0 {
		return nil, ""
	}

	upload, err := h.images.Process(file, header.Filename)
	switch {
	case err == nil:
		return upload, ""
	case errors.Is(err, imaging.ErrTooManyPixels):
		return nil, fmt.Sprintf("Images must be at most %d megapixels.", h.images.MaxPixels()/1_000_000)
	case errors.Is(err, imaging.ErrTooLarge):
		return nil, fmt.Sprintf("Images must be smaller than %d MB.", h.images.MaxBytes()>>20)
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return nil, "Only JPEG, PNG, GIF and WebP images are supported."
	default:
		slog.Warn("image processing failed", "category", model.EventCategoryPost, "error", err)
		return nil, "The image could not be processed."
	}
}

// Like handles POST /posts/{id}/like. The liked state and count shown are
// exactly the values returned by the API.
func (h *FeedHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	item := feed.NewPostItem(model.Post{ID: id}, h.api, nil)
	res, err := item.ToggleLike(r.Context())
	if err != nil {
		h.actionFailed(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSONSuccess(w, map[string]any{
			"liked":      res.Liked,
			"like_count": res.LikeCount,
			"message":    res.Message,
		})
		return
	}
	http.Redirect(w, r, postAnchor(id), http.StatusSeeOther)
}

// Comments handles GET /posts/{id}/comments - the comment panel refresh.
func (h *FeedHandler) Comments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	item := feed.NewPostItem(model.Post{ID: id}, h.api, nil)
	if err := item.RefreshComments(r.Context()); err != nil {
		if apiclient.IsKind(err, apiclient.KindAuth) {
			h.store.Invalidate(r.Context())
		}
		writeJSONError(w, statusFor(err), apiclient.UserMessage(err))
		return
	}
	writeJSONSuccess(w, map[string]any{"comments": item.Comments()})
}

// Comment handles POST /posts/{id}/comments. Blank text is rejected
// without contacting the API.
func (h *FeedHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.actionFailed(w, r, err)
		return
	}

	item := feed.NewPostItem(model.Post{ID: id}, h.api, nil)
	c, err := item.AddComment(r.Context(), r.FormValue(formContent))
	if err != nil {
		if errors.Is(err, feed.ErrEmptyComment) {
			if wantsJSON(r) {
				writeJSONError(w, http.StatusBadRequest, "Comment cannot be empty.")
				return
			}
			flashError(w, r, h.renderer, postAnchor(id), "Comment cannot be empty.")
			return
		}
		h.actionFailed(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"comment": c})
		return
	}
	http.Redirect(w, r, postAnchor(id), http.StatusSeeOther)
}

// actionFailed reports a failed per-post action in the format the caller asked for.
func (h *FeedHandler) actionFailed(w http.ResponseWriter, r *http.Request, err error) {
	if !wantsJSON(r) {
		h.fail(w, r, redirectRoot, err)
		return
	}
	if apiclient.IsKind(err, apiclient.KindAuth) {
		h.store.Invalidate(r.Context())
	}
	if apiclient.KindOf(err) == 0 {
		slog.Error("post action failed", "path", r.URL.Path, "error", err)
	}
	writeJSONError(w, statusFor(err), apiclient.UserMessage(err))
}

// DeleteConfirm handles GET /posts/{id}/delete - the confirmation page.
func (h *FeedHandler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	h.confirmDelete(w, r, redirectRoot, true)
}

// Delete handles POST /posts/{id}/delete.
func (h *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.deletePost(w, r, redirectRoot, true)
}

// findPost loads the feed and returns the item with the URL's ID. It has
// written the response when ok is false.
func (v *views) findPost(w http.ResponseWriter, r *http.Request, back string) (*feed.PostList, *feed.PostItem, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return nil, nil, false
	}

	list := feed.NewPostList(v.api, v.logger)
	if err := list.Load(r.Context()); err != nil {
		v.fail(w, r, back, err)
		return nil, nil, false
	}

	item := list.Item(id)
	if item == nil {
		flashError(w, r, v.renderer, back, "The requested item no longer exists.")
		return nil, nil, false
	}
	return list, item, true
}

func (v *views) confirmDelete(w http.ResponseWriter, r *http.Request, back string, ownerOnly bool) {
	_, item, ok := v.findPost(w, r, back)
	if !ok {
		return
	}
	if ownerOnly && !item.CanDelete(middleware.GetSession(r)) {
		flashError(w, r, v.renderer, back, "You do not have permission to perform this action.")
		return
	}

	v.renderer.RenderPage(w, r, tmplPostDelete, render.TemplateData{
		Title: "Delete post",
		Data: DeletePage{
			Item:   item,
			Prompt: feed.DeletePrompt,
			Action: r.URL.Path,
			Cancel: back,
		},
	})
}

func (v *views) deletePost(w http.ResponseWriter, r *http.Request, back string, ownerOnly bool) {
	if !parseFormOrRedirect(w, r, v.renderer, back) {
		return
	}

	list, item, ok := v.findPost(w, r, back)
	if !ok {
		return
	}
	if ownerOnly && !item.CanDelete(middleware.GetSession(r)) {
		flashError(w, r, v.renderer, back, "You do not have permission to perform this action.")
		return
	}

	confirmed := feed.ConfirmFunc(func(_ context.Context, _ string) bool {
		return strings.EqualFold(r.PostFormValue(formConfirm), formConfirmYes)
	})

	deleted, err := item.Delete(r.Context(), confirmed)
	if err != nil {
		v.fail(w, r, back, err)
		return
	}
	if !deleted {
		flashAndRedirect(w, r, v.renderer, back, "The post was not deleted.", render.FlashInfo)
		return
	}

	slog.Info("post deleted",
		"category", model.EventCategoryPost,
		"post_id", item.ID(),
		"user_id", middleware.GetUserID(r),
		"remaining", list.Len(),
	)
	flashSuccess(w, r, v.renderer, back, "Post deleted.")
}

func postAnchor(id int64) string {
	return fmt.Sprintf("%s#post-%d", redirectRoot, id)
}

// statusFor maps an API failure to the status of a JSON response.
func statusFor(err error) int {
	switch apiclient.KindOf(err) {
	case apiclient.KindAuth:
		return http.StatusUnauthorized
	case apiclient.KindValidation:
		return http.StatusBadRequest
	case apiclient.KindAuthorization:
		return http.StatusForbidden
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindNetwork, apiclient.KindServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
