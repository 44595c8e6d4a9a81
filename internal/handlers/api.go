package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"porteiro/internal/sitemode"
	"porteiro/internal/store"
)

// API serves the read-only JSON endpoints under /api/. The gate classifies
// the path as internal, so monitoring keeps working while the site is
// closed to visitors.
type API struct {
	modes     *sitemode.Service
	pageStore *store.PageStore
	siteID    string
}

// NewAPI creates a new API handler group.
func NewAPI(modes *sitemode.Service, pageStore *store.PageStore, siteID string) *API {
	return &API{
		modes:     modes,
		pageStore: pageStore,
		siteID:    siteID,
	}
}

// Status reports the derived gate state of the site.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	settings := a.modes.Resolve(a.siteID)
	writeJSON(w, http.StatusOK, map[string]any{
		"site":   a.siteID,
		"status": settings.Status(),
	})
}

// apiPage is the trimmed page representation the listing returns.
type apiPage struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Pages lists the published pages of the site.
func (a *API) Pages(w http.ResponseWriter, r *http.Request) {
	pages, err := a.pageStore.ListPublished(a.siteID)
	if err != nil {
		slog.Error("api list pages failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]apiPage, 0, len(pages))
	for _, p := range pages {
		out = append(out, apiPage{
			ID:          p.ID.String(),
			Title:       p.Title,
			Slug:        p.Slug,
			PublishedAt: p.PublishedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": out})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
