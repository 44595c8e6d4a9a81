// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"porteiro/internal/cache"
	"porteiro/internal/markdown"
	"porteiro/internal/models"
	"porteiro/internal/render"
	"porteiro/internal/store"
)

// Public groups handlers for the public-facing site. It checks the Valkey
// page cache before touching the database, and stores rendered pages on
// miss. The gate middleware runs before any of these handlers, so cached
// entries are served only while the site is online.
type Public struct {
	renderer  *render.Renderer
	pageStore *store.PageStore
	pageCache *cache.PageCache
	siteID    string
}

// NewPublic creates a new Public handler group.
func NewPublic(renderer *render.Renderer, pageStore *store.PageStore, pageCache *cache.PageCache, siteID string) *Public {
	return &Public{
		renderer:  renderer,
		pageStore: pageStore,
		pageCache: pageCache,
		siteID:    siteID,
	}
}

// Home renders the site front page: the body of the page with slug "home"
// when one is published, plus a listing of the other published pages.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cached, ok := p.pageCache.Get(ctx, cache.HomeKey(p.siteID)); ok {
		writeHTML(w, cached)
		return
	}

	published, err := p.pageStore.ListPublished(p.siteID)
	if err != nil {
		slog.Error("list published pages failed", "error", err)
	}

	data := &render.PublicData{Title: "Início"}
	for _, pg := range published {
		if pg.Slug == "home" {
			continue
		}
		data.Pages = append(data.Pages, pg)
	}

	if home, err := p.pageStore.FindPublishedBySlug(p.siteID, "home"); err == nil && home != nil {
		data.Title = home.Title
		if home.MetaDescription != nil {
			data.Meta = *home.MetaDescription
		}
		body, err := renderBody(home)
		if err != nil {
			slog.Error("render home body failed", "error", err)
		} else {
			data.Body = body
		}
	}

	out, err := p.renderer.Public("home", data)
	if err != nil {
		slog.Error("render home failed", "error", err)
		p.fallback(w, "Início")
		return
	}

	p.pageCache.Set(ctx, cache.HomeKey(p.siteID), out)
	writeHTML(w, out)
}

// Page renders a published page by its slug.
func (p *Public) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugParam := chi.URLParam(r, "slug")

	if cached, ok := p.pageCache.Get(ctx, cache.PageKey(p.siteID, slugParam)); ok {
		writeHTML(w, cached)
		return
	}

	page, err := p.pageStore.FindPublishedBySlug(p.siteID, slugParam)
	if err != nil {
		slog.Error("find page by slug failed", "error", err, "slug", slugParam)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if page == nil {
		// Drafts and unknown slugs are indistinguishable out here.
		p.NotFound(w, r)
		return
	}

	body, err := renderBody(page)
	if err != nil {
		slog.Error("render page body failed", "error", err, "slug", slugParam)
		p.fallback(w, page.Title)
		return
	}

	data := &render.PublicData{Title: page.Title, Body: body}
	if page.MetaDescription != nil {
		data.Meta = *page.MetaDescription
	}

	out, err := p.renderer.Public("page", data)
	if err != nil {
		slog.Error("render page failed", "error", err, "slug", slugParam)
		p.fallback(w, page.Title)
		return
	}

	p.pageCache.Set(ctx, cache.PageKey(p.siteID, slugParam), out)
	writeHTML(w, out)
}

// NotFound renders the public 404 page.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	out, err := p.renderer.Public("notfound", &render.PublicData{Title: "Página não encontrada"})
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(out)
}

// renderBody produces the HTML for a page body according to its format.
// Raw HTML bodies pass through untouched; authors are staff.
func renderBody(pg *models.Page) (template.HTML, error) {
	if pg.BodyFormat == models.BodyFormatMarkdown {
		out, err := markdown.ToHTML(pg.Body)
		if err != nil {
			return "", fmt.Errorf("markdown render: %w", err)
		}
		return template.HTML(out), nil
	}
	return template.HTML(pg.Body), nil
}

// fallback writes a bare error page when template rendering fails. Only
// the escaped title is echoed, never raw page content.
func (p *Public) fallback(w http.ResponseWriter, title string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	safeTitle := html.EscapeString(title)
	w.Write([]byte(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8"><title>` + safeTitle + `</title></head>
<body><h1>` + safeTitle + `</h1>
<p>Esta página não pôde ser exibida no momento. Tente novamente em instantes.</p>
<p><a href="/">Voltar ao início</a></p></body></html>`))
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}
