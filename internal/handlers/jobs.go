// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"porteiro/internal/cache"
	"porteiro/internal/store"
)

// Jobs serves the endpoints under /jobs/, invoked by external schedulers
// rather than browsers. Requests authenticate with the configured job
// token; the gate classifies the path as internal, so jobs keep running
// while the site is closed.
type Jobs struct {
	pageStore *store.PageStore
	pageCache *cache.PageCache
	token     string
}

// NewJobs creates a new Jobs handler group. An empty token disables every
// job endpoint.
func NewJobs(pageStore *store.PageStore, pageCache *cache.PageCache, token string) *Jobs {
	return &Jobs{
		pageStore: pageStore,
		pageCache: pageCache,
		token:     token,
	}
}

// PublishDue promotes scheduled pages whose publish time has passed.
// Failures on individual pages are logged and skipped; the next run picks
// them up again.
func (j *Jobs) PublishDue(w http.ResponseWriter, r *http.Request) {
	if !j.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid job token"})
		return
	}

	now := time.Now()
	due, err := j.pageStore.ListDue(now)
	if err != nil {
		slog.Error("list due pages failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	published := 0
	for _, p := range due {
		if err := j.pageStore.MarkPublished(p.ID, now); err != nil {
			slog.Error("publish due page failed", "id", p.ID, "error", err)
			continue
		}
		j.pageCache.InvalidatePage(r.Context(), cache.PageKey(p.SiteID, p.Slug))
		j.pageCache.InvalidateHome(r.Context(), p.SiteID)
		slog.Info("scheduled page published", "id", p.ID, "slug", p.Slug, "site", p.SiteID)
		published++
	}

	writeJSON(w, http.StatusOK, map[string]any{"published": published})
}

// authorized checks the job token header.
func (j *Jobs) authorized(r *http.Request) bool {
	if j.token == "" {
		return false
	}
	header := r.Header.Get("X-Job-Token")
	return subtle.ConstantTimeCompare([]byte(header), []byte(j.token)) == 1
}
