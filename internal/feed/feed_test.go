// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/socialfeed/internal/apiclient"
	"github.com/olegiv/socialfeed/internal/model"
	"github.com/olegiv/socialfeed/internal/session"
	"github.com/olegiv/socialfeed/internal/testutil/fakeapi"
)

// setup returns a client authenticated as "alice" against a fresh fake API.
func setup(t *testing.T) (*apiclient.Client, context.Context, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(t)
	fake.AddUser("alice", "password1", false)

	client, err := apiclient.New(apiclient.Config{BaseURL: fake.URL})
	require.NoError(t, err)

	ctx := apiclient.WithToken(context.Background(), fake.IssueToken("alice"))
	return client, ctx, fake
}

func TestPostList_Load(t *testing.T) {
	client, ctx, fake := setup(t)
	fake.AddPost("alice", "First", "one")
	fake.AddPost("alice", "Second", "two")

	list := NewPostList(client, nil)
	require.NoError(t, list.Load(ctx))

	require.Equal(t, 2, list.Len())
	assert.Equal(t, "Second", list.Posts()[0].Post.Title, "API order is kept")
}

func TestPostList_LoadFailureLeavesEmptyList(t *testing.T) {
	client, ctx, fake := setup(t)
	fake.AddPost("alice", "First", "one")

	list := NewPostList(client, nil)
	require.NoError(t, list.Load(ctx))
	require.Equal(t, 1, list.Len())

	fake.FailPosts(true)
	err := list.Load(ctx)
	require.Error(t, err)
	assert.True(t, apiclient.IsKind(err, apiclient.KindServer))
	assert.Equal(t, 0, list.Len())
	assert.NotNil(t, list.Posts())
	assert.True(t, apiclient.IsKind(list.Err(), apiclient.KindServer))

	fake.FailPosts(false)
	require.NoError(t, list.Refresh(ctx))
	assert.NoError(t, list.Err())
}

func TestPostList_CreateRefreshes(t *testing.T) {
	client, ctx, fake := setup(t)

	list := NewPostList(client, nil)
	require.NoError(t, list.Load(ctx))

	created, err := list.Create(ctx, model.NewPost{Title: "Hello", Content: "World"})
	require.NoError(t, err)

	require.Equal(t, 1, list.Len())
	got := list.Posts()[0].Post
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "World", got.Content)
	assert.Equal(t, 0, got.LikeCount)
	assert.Equal(t, 2, fake.Requests("GET", "/posts/"), "creation triggers a full re-fetch")
}

func TestPostList_CreateValidation(t *testing.T) {
	client, ctx, fake := setup(t)
	list := NewPostList(client, nil)

	_, err := list.Create(ctx, model.NewPost{Title: "   ", Content: ""})
	var invalid *InvalidPostError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "This field is required", invalid.Fields["title"])
	assert.Equal(t, "This field is required", invalid.Fields["content"])
	assert.Zero(t, fake.Requests("POST", "/posts/"))
}

func TestPostList_DeleteRemovesWithoutRefetch(t *testing.T) {
	client, ctx, fake := setup(t)
	keep := fake.AddPost("alice", "Keep", "k")
	gone := fake.AddPost("alice", "Gone", "g")

	list := NewPostList(client, nil)
	require.NoError(t, list.Load(ctx))

	deleted, err := list.Item(gone.ID).Delete(ctx, Confirmed)
	require.NoError(t, err)
	require.True(t, deleted)

	assert.Equal(t, 1, list.Len())
	assert.Nil(t, list.Item(gone.ID))
	assert.NotNil(t, list.Item(keep.ID))
	assert.Equal(t, 1, fake.Requests("GET", "/posts/"), "deletion must not re-fetch")
}

func TestPostItem_DeleteDeclined(t *testing.T) {
	client, ctx, fake := setup(t)
	p := fake.AddPost("alice", "Stay", "s")

	list := NewPostList(client, nil)
	require.NoError(t, list.Load(ctx))

	var prompt string
	deny := ConfirmFunc(func(_ context.Context, q string) bool {
		prompt = q
		return false
	})

	deleted, err := list.Item(p.ID).Delete(ctx, deny)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, DeletePrompt, prompt)
	assert.Equal(t, 1, list.Len())
	assert.Zero(t, fake.Requests("DELETE", apiclient.PathPost(p.ID)))

	deleted, err = list.Item(p.ID).Delete(ctx, nil)
	require.NoError(t, err)
	assert.False(t, deleted, "nil confirmer never confirms")
}

func TestPostItem_DeleteFailureKeepsItem(t *testing.T) {
	client, _, fake := setup(t)
	fake.AddUser("mallory", "password1", false)
	p := fake.AddPost("alice", "Mine", "m")

	ctx := apiclient.WithToken(context.Background(), fake.IssueToken("mallory"))
	list := NewPostList(client, nil)
	require.NoError(t, list.Load(ctx))

	_, err := list.Item(p.ID).Delete(ctx, Confirmed)
	require.Error(t, err)
	assert.True(t, apiclient.IsKind(err, apiclient.KindAuthorization))
	assert.Equal(t, 1, list.Len())
}

func TestPostItem_ToggleLike(t *testing.T) {
	client, ctx, fake := setup(t)
	p := fake.AddPost("alice", "Like me", "x")

	item := NewPostItem(p, client, nil)
	require.False(t, item.Liked())
	before := item.LikeCount()

	res, err := item.ToggleLike(ctx)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.True(t, item.Liked())
	assert.Equal(t, before+1, item.LikeCount())

	res, err = item.ToggleLike(ctx)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.False(t, item.Liked())
	assert.Equal(t, before, item.LikeCount())
}

func TestPostItem_ToggleLikeUsesServerValues(t *testing.T) {
	api := &stubAPI{like: &model.LikeResult{Liked: true, LikeCount: 41}}
	item := NewPostItem(model.Post{ID: 1, LikeCount: 3}, api, nil)

	_, err := item.ToggleLike(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41, item.LikeCount())
	assert.True(t, item.Liked())

	api.err = errors.New("down")
	_, err = item.ToggleLike(context.Background())
	require.Error(t, err)
	assert.Equal(t, 41, item.LikeCount(), "failed toggle leaves state unchanged")
}

func TestPostItem_AddComment(t *testing.T) {
	client, ctx, fake := setup(t)
	p := fake.AddPost("alice", "Talk", "x")
	item := NewPostItem(p, client, nil)

	c, err := item.AddComment(ctx, "  Nice post  ")
	require.NoError(t, err)
	assert.Equal(t, "Nice post", c.Content)
	assert.Equal(t, "alice", c.AuthorName)
	assert.NotZero(t, c.ID)
	require.Len(t, item.Comments(), 1)
	assert.Equal(t, 1, item.Post.CommentCount)

	require.NoError(t, item.RefreshComments(ctx))
	assert.Len(t, item.Comments(), 1)
}

func TestPostItem_EmptyCommentSendsNoRequest(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		api := &stubAPI{}
		item := NewPostItem(model.Post{ID: 1}, api, nil)

		_, err := item.AddComment(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyComment)
		assert.Zero(t, api.calls, "text %q", text)
		assert.Empty(t, item.Comments())
	}
}

func TestPostItem_CanDelete(t *testing.T) {
	item := NewPostItem(model.Post{ID: 1, Author: 7}, nil, nil)

	assert.False(t, item.CanDelete(nil))
	assert.False(t, item.CanDelete(session.Anonymous()))
	assert.True(t, item.CanDelete(session.Authenticated(model.User{ID: 7})))
	assert.False(t, item.CanDelete(session.Authenticated(model.User{ID: 8})))
	assert.True(t, item.CanDelete(session.Authenticated(model.User{ID: 8, IsStaff: true})))
}

type stubAPI struct {
	like  *model.LikeResult
	err   error
	calls int
}

func (s *stubAPI) ListPosts(context.Context) ([]model.Post, error) {
	s.calls++
	return []model.Post{}, s.err
}

func (s *stubAPI) CreatePost(context.Context, model.NewPost) (*model.Post, error) {
	s.calls++
	return &model.Post{}, s.err
}

func (s *stubAPI) DeletePost(context.Context, int64) error {
	s.calls++
	return s.err
}

func (s *stubAPI) TogglePostLike(context.Context, int64) (*model.LikeResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.like, nil
}

func (s *stubAPI) CreateComment(context.Context, int64, string) (*model.Comment, error) {
	s.calls++
	return &model.Comment{}, s.err
}

func (s *stubAPI) ListComments(context.Context, int64) ([]model.Comment, error) {
	s.calls++
	return []model.Comment{}, s.err
}
