// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types exchanged with the social platform API,
// plus the level and category names of the local event log.
package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// User represents an account on the social platform as reported by the API.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Bio       string    `json:"bio"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	PostCount int       `json:"post_count"`
	IsOnline  bool      `json:"is_online"`
}

// IsAdmin returns true if the API reports the user as staff.
func (u *User) IsAdmin() bool {
	return u != nil && u.IsStaff
}

// FullName returns "First Last", trimmed.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName returns the full name, falling back to the username.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

// Initial returns the upper-cased first letter of the username, or "U".
func (u *User) Initial() string {
	return Initial(u.Username)
}

// Initial returns the upper-cased first rune of name, or "U" for an empty name.
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "U"
	}
	return string(unicode.ToUpper(r))
}

// UserPatch holds a partial user update. Nil fields are left unchanged.
// The staff flag is deliberately absent: the role only ever comes from the API.
type UserPatch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	PostCount *int
	IsOnline  *bool
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.PostCount != nil {
		u.PostCount = *p.PostCount
	}
	if p.IsOnline != nil {
		u.IsOnline = *p.IsOnline
	}
}

// PatchFromUser builds a patch carrying every mergeable field of u.
func PatchFromUser(u User) UserPatch {
	return UserPatch{
		Username:  &u.Username,
		Email:     &u.Email,
		FirstName: &u.FirstName,
		LastName:  &u.LastName,
		Bio:       &u.Bio,
		PostCount: &u.PostCount,
		IsOnline:  &u.IsOnline,
	}
}

// ProfileUpdate is the editable subset of a user sent to PATCH /auth/profile/.
type ProfileUpdate struct {
	FirstName string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=150"`
	Email     string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Bio       string `json:"bio" form:"bio" validate:"max=500"`
}

// ProfileUpdateFromUser prefills the profile form from the current user.
func ProfileUpdateFromUser(u *User) ProfileUpdate {
	if u == nil {
		return ProfileUpdate{}
	}
	return ProfileUpdate{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Bio:       u.Bio,
	}
}

// Credentials are submitted to POST /auth/login/.
type Credentials struct {
	Username string `json:"username" form:"username" validate:"required,max=150"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Registration is submitted to POST /auth/register/.
type Registration struct {
	Username        string `json:"username" form:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" form:"email" validate:"required,email,max=254"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password2" form:"password2" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name,omitempty" form:"first_name" validate:"max=150"`
	LastName        string `json:"last_name,omitempty" form:"last_name" validate:"max=150"`
}

// AuthResult is returned by POST /auth/login/.
type AuthResult struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// UserStats is returned by GET /auth/users/ (staff only).
type UserStats struct {
	TotalUsers  int    `json:"total_users"`
	OnlineUsers int    `json:"online_users"`
	Users       []User `json:"users"`
}
