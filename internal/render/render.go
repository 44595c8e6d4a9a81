// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the admin interface
// and the public site. Admin pages share a base layout and write straight
// to the response; public pages render to bytes so the page cache can
// store the result before it is written out.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"porteiro/internal/middleware"
	"porteiro/internal/models"
	"porteiro/internal/session"
)

//go:embed templates/admin/*.html templates/public/*.html
var templateFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active nav section (e.g., "dashboard", "pages")
	SiteName  string         // Site display name, injected by the renderer
	Session   *session.Data  // Current user session (nil if unauthenticated)
	CSRFToken string         // CSRF token for forms
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error"
	Message string
}

// PublicData holds the data passed to public page templates.
type PublicData struct {
	SiteName string
	Title    string
	Meta     string        // meta description; empty omits the tag
	Body     template.HTML // page body, already rendered to HTML
	Pages    []models.Page // published pages for the index listing
}

// Renderer handles template parsing and execution.
type Renderer struct {
	admin    map[string]*template.Template
	public   map[string]*template.Template
	siteName string
}

// standaloneTemplates lists admin templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":      true,
	"2fa_setup":  true,
	"2fa_verify": true,
}

var funcMap = template.FuncMap{
	// deref safely dereferences a string pointer for use in templates.
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	// datefmt formats a timestamp the way the admin lists display it.
	"datefmt": func(t time.Time) string {
		return t.Format("02/01/2006 15:04")
	},
	// activeClass marks the nav link of the current section.
	"activeClass": func(current, target string) string {
		if current == target {
			return "active"
		}
		return ""
	},
	// statusLabel translates a page status for display.
	"statusLabel": func(s models.PageStatus) string {
		switch s {
		case models.PageStatusPublished:
			return "Publicada"
		case models.PageStatusScheduled:
			return "Agendada"
		default:
			return "Rascunho"
		}
	},
	// uuidEq compares two UUIDs; templates cannot compare them directly.
	"uuidEq": func(a, b uuid.UUID) bool {
		return a == b
	},
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Admin page templates are paired with the admin base layout,
// public ones with the public base layout.
func New(siteName string) (*Renderer, error) {
	r := &Renderer{
		admin:    make(map[string]*template.Template),
		public:   make(map[string]*template.Template),
		siteName: siteName,
	}
	if err := parseDir("templates/admin", standaloneTemplates, r.admin); err != nil {
		return nil, err
	}
	if err := parseDir("templates/public", nil, r.public); err != nil {
		return nil, err
	}
	return r, nil
}

// parseDir parses every page template in dir, pairing each with the dir's
// base.html unless the template is standalone.
func parseDir(dir string, standalone map[string]bool, out map[string]*template.Template) error {
	entries, err := templateFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read templates %s: %w", dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		if standalone[tmplName] {
			tmpl, err = template.New(name).Funcs(funcMap).ParseFS(templateFS, dir+"/"+name)
		} else {
			tmpl, err = template.New("base.html").Funcs(funcMap).ParseFS(templateFS, dir+"/base.html", dir+"/"+name)
		}
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}

		out[tmplName] = tmpl
	}
	return nil
}

// Page renders a full admin page. The CSRF token and session are injected
// from the request context (set by the CSRF and LoadSession middleware).
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	tmpl, ok := rn.admin[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.SiteName = rn.siteName
	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	execName := "base.html"
	// Standalone pages use their own root template (not base.html).
	if standaloneTemplates[name] {
		execName = name + ".html"
	}

	if err := tmpl.ExecuteTemplate(w, execName, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// Public renders a public page template and returns the bytes, so callers
// can cache the result before writing it to the response.
func (rn *Renderer) Public(name string, data *PublicData) ([]byte, error) {
	tmpl, ok := rn.public[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	if data.SiteName == "" {
		data.SiteName = rn.siteName
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
