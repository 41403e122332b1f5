// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Post is a feed entry as returned by GET /posts/.
type Post struct {
	ID           int64     `json:"id"`
	Author       int64     `json:"author"`
	AuthorName   string    `json:"author_name"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Image        string    `json:"image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	UserHasLiked bool      `json:"user_has_liked"`
	Comments     []Comment `json:"comments"`
}

// AuthorInitial returns the avatar letter for the post author.
func (p *Post) AuthorInitial() string {
	return Initial(p.AuthorName)
}

// Comment is a single comment on a post. Comments are append-only on the client.
type Comment struct {
	ID         int64     `json:"id"`
	Post       int64     `json:"post"`
	Author     int64     `json:"author"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewComment is the body of POST /comments/.
type NewComment struct {
	Post    int64  `json:"post"`
	Content string `json:"content"`
}

// LikeResult is returned by POST /posts/{id}/like/.
type LikeResult struct {
	Message   string `json:"message"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// NewPost is the sidebar creation form. Image is optional.
type NewPost struct {
	Title   string `form:"title" validate:"required,max=200"`
	Content string `form:"content" validate:"required,max=10000"`
	Image   *Upload
}

// Upload is an in-memory file ready to be sent as a multipart part.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
