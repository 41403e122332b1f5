// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/olegiv/socialfeed/internal/model"
)

// API paths for post endpoints.
const (
	PathPosts    = "/posts/"
	PathComments = "/comments/"
)

// PathPost returns the path of a single post.
func PathPost(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// PathPostLike returns the like-toggle path of a post.
func PathPostLike(id int64) string {
	return fmt.Sprintf("/posts/%d/like/", id)
}

// PathPostComments returns the comment listing path of a post.
func PathPostComments(id int64) string {
	return fmt.Sprintf("/posts/%d/comments/", id)
}

// ListPosts returns the full post collection, newest first as ordered by the API.
func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.doJSON(ctx, http.MethodGet, PathPosts, nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

// CreatePost submits a post as multipart/form-data (title, content, optional image).
func (c *Client) CreatePost(ctx context.Context, p model.NewPost) (*model.Post, error) {
	body, contentType, err := encodePostForm(p)
	if err != nil {
		return nil, err
	}

	var post model.Post
	if err := c.do(ctx, http.MethodPost, PathPosts, body, contentType, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post. Authorization is the server's decision.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, PathPost(id), nil, nil)
}

// TogglePostLike likes an unliked post or unlikes a liked one.
func (c *Client) TogglePostLike(ctx context.Context, id int64) (*model.LikeResult, error) {
	var result model.LikeResult
	if err := c.doJSON(ctx, http.MethodPost, PathPostLike(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateComment adds a comment and returns it with its server-assigned fields.
func (c *Client) CreateComment(ctx context.Context, postID int64, content string) (*model.Comment, error) {
	var comment model.Comment
	in := model.NewComment{Post: postID, Content: content}
	if err := c.doJSON(ctx, http.MethodPost, PathComments, in, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments returns the comments of one post.
func (c *Client) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.doJSON(ctx, http.MethodGet, PathPostComments(postID), nil, &comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodePostForm builds the multipart body for CreatePost.
func encodePostForm(p model.NewPost) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)

	if err := mw.WriteField("title", p.Title); err != nil {
		return nil, "", fmt.Errorf("writing title field: %w", err)
	}
	if err := mw.WriteField("content", p.Content); err != nil {
		return nil, "", fmt.Errorf("writing content field: %w", err)
	}

	if p.Image != nil && len(p.Image.Data) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(p.Image.Filename)))
		ct := p.Image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set(headerContentType, ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating image part: %w", err)
		}
		if _, err := part.Write(p.Image.Data); err != nil {
			return nil, "", fmt.Errorf("writing image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}
