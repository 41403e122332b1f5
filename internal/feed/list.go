// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package feed holds the view state of the post feed: the post list and the
// per-post operations (like, comment, delete).
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/validate"
)

// API is the subset of the REST client the feed needs.
type API interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	CreatePost(ctx context.Context, p model.NewPost) (*model.Post, error)
	DeletePost(ctx context.Context, id int64) error
	TogglePostLike(ctx context.Context, id int64) (*model.LikeResult, error)
	CreateComment(ctx context.Context, postID int64, content string) (*model.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
}

// InvalidPostError carries per-field messages for a rejected post form.
type InvalidPostError struct {
	Fields validate.Errors
}

func (e *InvalidPostError) Error() string {
	return "invalid post: " + e.Fields.First()
}

// PostList is the feed's post collection. It is owned by one request.
type PostList struct {
	api    API
	logger *slog.Logger
	items  []*PostItem
	err    error
}

// NewPostList creates an empty list.
func NewPostList(api API, logger *slog.Logger) *PostList {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostList{api: api, logger: logger, items: []*PostItem{}}
}

// Load fetches the full collection. No pagination. On failure the list is
// empty and the error is returned for callers that need to react to it.
func (l *PostList) Load(ctx context.Context) error {
	posts, err := l.api.ListPosts(ctx)
	l.err = err
	if err != nil {
		l.items = []*PostItem{}
		l.logger.Error("loading posts failed", "category", model.EventCategoryUpstream, "error", err)
		return fmt.Errorf("loading posts: %w", err)
	}

	items := make([]*PostItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, NewPostItem(p, l.api, l.remove))
	}
	l.items = items
	return nil
}

// Refresh re-fetches the whole collection.
func (l *PostList) Refresh(ctx context.Context) error {
	return l.Load(ctx)
}

// Create validates and submits a post, then refreshes the list from the API
// instead of merging the created post locally.
func (l *PostList) Create(ctx context.Context, p model.NewPost) (*model.Post, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if errs := validate.Struct(p); errs != nil {
		return nil, &InvalidPostError{Fields: errs}
	}

	created, err := l.api.CreatePost(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	l.logger.Info("post created", "category", model.EventCategoryPost, "post_id", created.ID)

	// The post exists upstream; a failed refresh only affects this render.
	_ = l.Refresh(ctx)
	return created, nil
}

// Err returns the error of the last fetch, or nil.
func (l *PostList) Err() error {
	return l.err
}

// Posts returns the items in API order.
func (l *PostList) Posts() []*PostItem {
	return l.items
}

// Len returns the number of posts.
func (l *PostList) Len() int {
	return len(l.items)
}

// Item returns the post with the given ID, or nil.
func (l *PostList) Item(id int64) *PostItem {
	for _, it := range l.items {
		if it.ID() == id {
			return it
		}
	}
	return nil
}

// Remove drops a post by identity without re-fetching.
func (l *PostList) Remove(id int64) bool {
	for i, it := range l.items {
		if it.ID() == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

func (l *PostList) remove(id int64) {
	l.Remove(id)
}
