// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fakeapi is an in-memory stand-in for the social platform REST API,
// served through httptest for package tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/socialfeed/internal/model"
)

var signingKey = []byte("fakeapi-signing-key")

type account struct {
	user     model.User
	password string
}

type like struct {
	postID int64
	userID int64
}

// Server is a fake REST API. Zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account // by username
	tokens    map[string]int64    // access token -> user ID
	refreshes map[string]int64    // refresh token -> user ID
	posts     []model.Post
	likes     map[like]bool
	nextID    int64
	requests  map[string]int

	tokenTTL   time.Duration
	failLogout bool
	failPosts  bool
}

// New starts a fake API and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts:  make(map[string]*account),
		tokens:    make(map[string]int64),
		refreshes: make(map[string]int64),
		likes:     make(map[like]bool),
		requests:  make(map[string]int),
		nextID:    1,
		tokenTTL:  time.Hour,
	}

	r := chi.NewRouter()
	r.Use(s.count)
	r.Post("/auth/login/", s.login)
	r.Post("/auth/register/", s.register)
	r.Post("/auth/logout/", s.logout)
	r.Get("/auth/profile/", s.withUser(s.profile))
	r.Patch("/auth/profile/", s.withUser(s.updateProfile))
	r.Get("/auth/users/", s.withUser(s.users))
	r.Get("/posts/", s.listPosts)
	r.Post("/posts/", s.withUser(s.createPost))
	r.Delete("/posts/{id}/", s.withUser(s.deletePost))
	r.Post("/posts/{id}/like/", s.withUser(s.toggleLike))
	r.Get("/posts/{id}/comments/", s.listComments)
	r.Post("/comments/", s.withUser(s.createComment))

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account and returns its user record.
func (s *Server) AddUser(username, password string, staff bool) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, username+"@example.com", staff)
}

func (s *Server) addUserLocked(username, password, email string, staff bool) model.User {
	u := model.User{
		ID:        s.id(),
		Username:  username,
		Email:     email,
		IsStaff:   staff,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[username] = &account{user: u, password: password}
	return u
}

// AddPost stores a post authored by the given username.
func (s *Server) AddPost(username, title, content string) model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	author := s.accounts[username]
	p := model.Post{
		ID:         s.id(),
		Title:      title,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Comments:   []model.Comment{},
		AuthorName: username,
	}
	if author != nil {
		p.Author = author.user.ID
		author.user.PostCount++
	}
	s.posts = append([]model.Post{p}, s.posts...)
	return p
}

// IssueToken logs username in directly and returns its access token.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	access, _ := s.issueLocked(s.accounts[username].user.ID)
	return access
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
	s.refreshes = make(map[string]int64)
}

// SetTokenTTL sets the exp claim offset of access tokens issued from now on.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// FailLogout makes POST /auth/logout/ answer 500.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogout = fail
}

// FailPosts makes GET /posts/ answer 500.
func (s *Server) FailPosts(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPosts = fail
}

// SetStaff changes the staff flag of an account.
func (s *Server) SetStaff(username string, staff bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username].user.IsStaff = staff
}

// Requests returns how many times "METHOD /path/" was called.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// TotalRequests returns the number of requests served.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// Posts returns a snapshot of stored posts.
func (s *Server) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(0)
}

func (s *Server) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) issueLocked(userID int64) (string, string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		ID:        strconv.FormatInt(s.id(), 10),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	refresh := fmt.Sprintf("refresh-%d-%d", userID, s.id())
	s.tokens[access] = userID
	s.refreshes[refresh] = userID
	return access, refresh
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, u *account)

func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		userID, ok := s.tokens[token]
		var acct *account
		if ok {
			for _, a := range s.accounts {
				if a.user.ID == userID {
					acct = a
					break
				}
			}
		}
		s.mu.Unlock()

		if acct == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}
		h(w, r, acct)
	}
}

func (s *Server) viewerID(r *http.Request) int64 {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[creds.Username]
	if !ok || acct.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}

	access, refresh := s.issueLocked(acct.user.ID)
	acct.user.IsOnline = true
	writeJSON(w, http.StatusOK, model.AuthResult{Access: access, Refresh: refresh, User: acct.user})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[reg.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
		return
	}
	u := s.addUserLocked(reg.Username, reg.Password, reg.Email, false)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.failLogout
	s.mu.Unlock()
	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	delete(s.refreshes, body.Refresh)
	delete(s.tokens, token)
	s.mu.Unlock()
	w.WriteHeader(http.StatusResetContent)
}

func (s *Server) profile(w http.ResponseWriter, _ *http.Request, acct *account) {
	s.mu.Lock()
	u := acct.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, acct *account) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range raw {
		val, _ := v.(string)
		switch key {
		case "first_name":
			acct.user.FirstName = val
		case "last_name":
			acct.user.LastName = val
		case "email":
			if val != "" && !strings.Contains(val, "@") {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Enter a valid email address."}})
				return
			}
			acct.user.Email = val
		case "bio":
			acct.user.Bio = val
		case "is_staff", "username":
			// read-only
		}
	}
	writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) users(w http.ResponseWriter, _ *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !acct.user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"detail": "You do not have permission to perform this action.",
		})
		return
	}

	stats := model.UserStats{Users: []model.User{}}
	for _, a := range s.accounts {
		stats.TotalUsers++
		if a.user.IsOnline {
			stats.OnlineUsers++
		}
		stats.Users = append(stats.Users, a.user)
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) snapshotLocked(viewer int64) []model.Post {
	out := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		p.Comments = append([]model.Comment{}, p.Comments...)
		p.CommentCount = len(p.Comments)
		p.LikeCount = 0
		for l := range s.likes {
			if l.postID == p.ID {
				p.LikeCount++
			}
		}
		p.UserHasLiked = viewer != 0 && s.likes[like{postID: p.ID, userID: viewer}]
		out = append(out, p)
	}
	return out
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	viewer := s.viewerID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPosts {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}
	writeJSON(w, http.StatusOK, s.snapshotLocked(viewer))
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request, acct *account) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Multipart form expected."})
		return
	}

	title := r.FormValue("title")
	content := r.FormValue("content")
	fields := map[string][]string{}
	if title == "" {
		fields["title"] = []string{"This field is required."}
	}
	if content == "" {
		fields["content"] = []string{"This field is required."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	image := ""
	if f, hdr, err := r.FormFile("image"); err == nil {
		_, _ = io.Copy(io.Discard, f)
		_ = f.Close()
		image = "/media/posts/" + hdr.Filename
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := model.Post{
		ID:         s.id(),
		Author:     acct.user.ID,
		AuthorName: acct.user.Username,
		Title:      title,
		Content:    content,
		Image:      image,
		CreatedAt:  time.Now().UTC(),
		Comments:   []model.Comment{},
	}
	s.posts = append([]model.Post{p}, s.posts...)
	acct.user.PostCount++
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) findLocked(r *http.Request) (int, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.findLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if s.posts[i].Author != acct.user.ID && !acct.user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"detail": "You do not have permission to perform this action.",
		})
		return
	}
	s.posts = append(s.posts[:i], s.posts[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.findLocked(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Post not found"})
		return
	}

	key := like{postID: s.posts[i].ID, userID: acct.user.ID}
	result := model.LikeResult{}
	if s.likes[key] {
		delete(s.likes, key)
		result.Message = "Post unliked"
	} else {
		s.likes[key] = true
		result.Message = "Post liked"
		result.Liked = true
	}
	for l := range s.likes {
		if l.postID == key.postID {
			result.LikeCount++
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.findLocked(r)
	if !ok {
		writeJSON(w, http.StatusOK, []model.Comment{})
		return
	}
	writeJSON(w, http.StatusOK, s.posts[i].Comments)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request, acct *account) {
	var in model.NewComment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"content": {"This field may not be blank."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID != in.Post {
			continue
		}
		c := model.Comment{
			ID:         s.id(),
			Post:       in.Post,
			Author:     acct.user.ID,
			AuthorName: acct.user.Username,
			Content:    in.Content,
			CreatedAt:  time.Now().UTC(),
		}
		s.posts[i].Comments = append(s.posts[i].Comments, c)
		writeJSON(w, http.StatusCreated, c)
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string][]string{"post": {"Invalid pk - object does not exist."}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
