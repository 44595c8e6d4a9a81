// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package gate

import (
	"log/slog"
	"net/http"

	"porteiro/internal/sitemode"
)

// Resolver yields the current gate settings for a site. sitemode.Service
// satisfies it; tests plug in a fixed-value fake.
type Resolver interface {
	Resolve(siteID string) sitemode.Settings
}

// IdentityFunc extracts the caller's identity from a request. The router
// wires one that reads the loaded session; the zero Identity means an
// anonymous visitor.
type IdentityFunc func(*http.Request) Identity

// Gate is the request-interception middleware. It sits after the session
// loader in the chain so the identity function can see who is calling.
type Gate struct {
	siteID   string
	settings Resolver
	classify *Classifier
	identity IdentityFunc
}

// New builds a Gate for one site. A nil classifier gets the defaults; a nil
// identity function treats every caller as anonymous.
func New(siteID string, settings Resolver, classify *Classifier, identity IdentityFunc) *Gate {
	if classify == nil {
		classify = NewClassifier()
	}
	if identity == nil {
		identity = func(*http.Request) Identity { return Identity{} }
	}
	return &Gate{
		siteID:   siteID,
		settings: settings,
		classify: classify,
		identity: identity,
	}
}

// Handler wraps next with the gate decision. Interception renders the
// placeholder; everything else flows through untouched.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		settings := g.settings.Resolve(g.siteID)

		if Decide(settings, g.classify.Internal(r), g.identity(r)) == Pass {
			next.ServeHTTP(w, r)
			return
		}

		slog.Debug("request intercepted",
			"path", r.URL.Path,
			"mode", settings.Mode,
		)
		WritePlaceholder(w, settings)
	})
}
