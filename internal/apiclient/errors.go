// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/tidwall/gjson"
)

// Kind classifies API failures the way views react to them.
type Kind int

// Failure kinds.
const (
	KindNetwork       Kind = iota + 1 // API unreachable, transport error
	KindAuth                          // 401, invalid or expired credentials
	KindValidation                    // 400, malformed input
	KindAuthorization                 // 403, not allowed
	KindNotFound                      // 404
	KindServer                        // 5xx or unreadable response
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind    Kind
	Status  int               // HTTP status, 0 for network failures
	Message string            // server-provided detail, may be empty
	Fields  map[string]string // per-field validation messages
	Err     error             // underlying transport/decode error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("api %s error (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("api %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FieldErrors returns per-field validation messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	return nil
}

// UserMessage converts err into a short message suitable for display next to a form.
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong. Please try again."
	}

	switch apiErr.Kind {
	case KindNetwork:
		return "Unable to reach the server. Please try again."
	case KindAuth:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Invalid username or password."
	case KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if field, msg, ok := firstField(apiErr.Fields); ok {
			return field + ": " + msg
		}
		return "Please check the form and try again."
	case KindAuthorization:
		return "You do not have permission to perform this action."
	case KindNotFound:
		return "The requested item no longer exists."
	default:
		return "Something went wrong. Please try again later."
	}
}

// firstField returns the alphabetically first field error for stable messages.
func firstField(fields map[string]string) (string, string, bool) {
	if len(fields) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], fields[keys[0]], true
}

// kindForStatus maps an HTTP status to a failure kind.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindServer
	}
}

// newStatusError builds an *Error from a non-2xx response body.
// The API speaks Django REST Framework, so bodies look like
// {"detail": "..."}, {"error": "..."} or {"field": ["msg", ...]}.
func newStatusError(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}
	if !gjson.ValidBytes(body) {
		return e
	}

	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return e
	}

	for _, key := range []string{"detail", "error", "message"} {
		if v := res.Get(key); v.Exists() && v.Type == gjson.String {
			e.Message = v.String()
			break
		}
	}

	res.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch name {
		case "detail", "error", "message", "code":
			return true
		}

		text := value.String()
		if value.IsArray() {
			text = value.Get("0").String()
		}
		if text == "" {
			return true
		}

		if name == "non_field_errors" {
			if e.Message == "" {
				e.Message = text
			}
			return true
		}

		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}
		e.Fields[name] = text
		return true
	})

	return e
}
