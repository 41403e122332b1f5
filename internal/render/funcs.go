// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"html/template"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/olegiv/socialfeed/internal/content"
	"github.com/olegiv/socialfeed/internal/model"
)

var numberPrinter = message.NewPrinter(language.English)

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"humanize":       humanizeTime,
		"markdown":       content.Markdown,
		"excerpt":        content.Excerpt,
		"initial":        model.Initial,
		"formatNumber":   formatNumber,
		"pluralize":      pluralize,
		"truncate":       truncate,
		"add": func(a, b int) int {
			return a + b
		},
		"dict": dict,
	}
}

// dict builds a map from key/value pairs so a partial can receive several values.
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		m[key] = values[i+1]
	}
	return m
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// humanizeTime renders t relative to now, e.g. "3 minutes ago".
func humanizeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// formatNumber groups thousands, e.g. 12345 -> "12,345".
func formatNumber(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// pluralize returns "1 like" or "3 likes".
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return formatNumber(n) + " " + singular
	}
	return formatNumber(n) + " " + plural
}

// truncate cuts s to length runes and appends "...".
func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	return string([]rune(s)[:length]) + "..."
}
