// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sanitize cleans operator-supplied text before storage. Titles are
// reduced to plain text; placeholder messages keep a small formatting subset.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	plainPolicy = bluemonday.StrictPolicy()
	richPolicy  = newRichPolicy()
)

// newRichPolicy allows the formatting a placeholder message may carry:
// paragraphs, inline emphasis, lists and nofollow links. No images, no
// scripts, no event handlers.
func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "b", "i", "u", "ul", "ol", "li", "code", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// Plain strips all markup and returns trimmed plain text. Entities are
// decoded so the result does not double-escape when rendered through a
// template.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

// Rich keeps the restricted formatting subset and drops everything else.
// The result is safe to render unescaped inside the placeholder page.
func Rich(s string) string {
	return strings.TrimSpace(richPolicy.Sanitize(s))
}
