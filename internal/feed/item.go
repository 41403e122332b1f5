// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/session"
)

// DeletePrompt is the question asked before a post is deleted.
const DeletePrompt = "Are you sure you want to delete this post?"

// ErrEmptyComment is returned for blank comment text. No request is sent.
var ErrEmptyComment = errors.New("comment cannot be empty")

// Confirmer is a synchronous user confirmation gate.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed is a Confirmer that always agrees.
var Confirmed = ConfirmFunc(func(context.Context, string) bool { return true })

// PostItem is the view state of a single post.
type PostItem struct {
	Post model.Post

	api      API
	onDelete func(id int64)
}

// NewPostItem wraps p. onDelete runs after a successful deletion and may be nil.
func NewPostItem(p model.Post, api API, onDelete func(id int64)) *PostItem {
	if p.Comments == nil {
		p.Comments = []model.Comment{}
	}
	return &PostItem{Post: p, api: api, onDelete: onDelete}
}

// ID returns the post ID.
func (p *PostItem) ID() int64 {
	return p.Post.ID
}

// Liked reports whether the viewer likes the post, as last reported by the API.
func (p *PostItem) Liked() bool {
	return p.Post.UserHasLiked
}

// LikeCount returns the like count last reported by the API.
func (p *PostItem) LikeCount() int {
	return p.Post.LikeCount
}

// Comments returns the comments in display order.
func (p *PostItem) Comments() []model.Comment {
	return p.Post.Comments
}

// CanDelete reports whether s may delete the post: its author or an admin.
func (p *PostItem) CanDelete(s *session.Session) bool {
	if !s.IsAuthenticated() {
		return false
	}
	return s.IsAdmin() || s.UserID() == p.Post.Author
}

// ToggleLike flips the viewer's like. The resulting state and count are
// exactly what the API returns; nothing is guessed locally.
func (p *PostItem) ToggleLike(ctx context.Context) (*model.LikeResult, error) {
	res, err := p.api.TogglePostLike(ctx, p.Post.ID)
	if err != nil {
		return nil, fmt.Errorf("toggling like on post %d: %w", p.Post.ID, err)
	}
	p.Post.UserHasLiked = res.Liked
	p.Post.LikeCount = res.LikeCount
	return res, nil
}

// AddComment submits text and appends the server's comment.
func (p *PostItem) AddComment(ctx context.Context, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	c, err := p.api.CreateComment(ctx, p.Post.ID, text)
	if err != nil {
		return nil, fmt.Errorf("commenting on post %d: %w", p.Post.ID, err)
	}
	p.Post.Comments = append(p.Post.Comments, *c)
	p.Post.CommentCount = len(p.Post.Comments)
	return c, nil
}

// RefreshComments replaces the comments with the API's current list.
func (p *PostItem) RefreshComments(ctx context.Context) error {
	comments, err := p.api.ListComments(ctx, p.Post.ID)
	if err != nil {
		return fmt.Errorf("listing comments of post %d: %w", p.Post.ID, err)
	}
	p.Post.Comments = comments
	p.Post.CommentCount = len(comments)
	return nil
}

// Delete asks c for confirmation and then deletes the post. It reports
// false without a request when the user declines.
func (p *PostItem) Delete(ctx context.Context, c Confirmer) (bool, error) {
	if c == nil || !c.Confirm(ctx, DeletePrompt) {
		return false, nil
	}

	if err := p.api.DeletePost(ctx, p.Post.ID); err != nil {
		return false, fmt.Errorf("deleting post %d: %w", p.Post.ID, err)
	}
	if p.onDelete != nil {
		p.onDelete(p.Post.ID)
	}
	return true, nil
}
