// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package gate

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"porteiro/internal/sitemode"
)

//go:embed templates/placeholder.html
var placeholderFS embed.FS

var placeholderTmpl = template.Must(
	template.ParseFS(placeholderFS, "templates/placeholder.html"),
)

// placeholderData feeds the placeholder template. Message is pre-sanitized
// HTML from the settings save path; Title goes through normal escaping.
type placeholderData struct {
	Badge   string
	Title   string
	Message template.HTML
}

// WritePlaceholder renders the placeholder page for the current mode and
// writes the full interception response: 503, Retry-After one hour, and
// cache-disabling directives so intermediaries never serve the placeholder
// after the site is back. The page is terminal: no navigation and no login
// link, so a gated site leaks nothing about what sits behind it.
func WritePlaceholder(w http.ResponseWriter, s sitemode.Settings) {
	data := placeholderData{
		Badge:   s.Mode.Badge(),
		Title:   s.ActiveTitle(),
		Message: template.HTML(s.ActiveMessage()),
	}

	var buf bytes.Buffer
	contentType := "text/html; charset=utf-8"
	if err := placeholderTmpl.Execute(&buf, data); err != nil {
		// The gate must answer even if the template does not. Plain text
		// still carries the configured title.
		slog.Error("placeholder render failed", "error", err)
		buf.Reset()
		buf.WriteString(data.Title)
		contentType = "text/plain; charset=utf-8"
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Retry-After", "3600")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write(buf.Bytes())
}
