// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// Porteiro server. It organizes routes into admin, API, job and public
// groups with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"porteiro/internal/config"
	"porteiro/internal/gate"
	"porteiro/internal/handlers"
	"porteiro/internal/middleware"
	"porteiro/internal/session"
	"porteiro/internal/sitemode"
	"porteiro/web"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. The login limiter is owned by the caller so
// its cleanup goroutine can be stopped on shutdown.
func New(cfg *config.Config, sessionStore *session.Store, modes *sitemode.Service, loginLimiter *middleware.RateLimiter, admin *handlers.Admin, auth *handlers.Auth, public *handlers.Public, api *handlers.API, jobs *handlers.Jobs) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request. The gate runs after the
	// session loader so its identity function can see who is calling.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	g := gate.New(cfg.SiteID, modes, gate.NewClassifier(), identityFromSession)
	r.Use(g.Handler)

	// Health check — no auth, no CSRF.
	r.Get("/health", healthHandler)

	// Static assets embedded in the binary. The embedded paths carry the
	// static/ prefix, so no StripPrefix here.
	r.Handle("/static/*", http.FileServer(http.FS(web.StaticFS)))

	// Admin routes — session based, CSRF protected.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NewCSRF(!cfg.IsDev()))

		// Auth pages — accessible without a session. Login is rate limited
		// per client IP.
		r.Group(func(r chi.Router) {
			r.Use(loginLimiter.Middleware)
			r.Get("/login", auth.LoginPage)
			r.Post("/login", auth.LoginSubmit)
		})
		r.Post("/logout", auth.Logout)

		// 2FA — requires auth but NOT completed 2FA.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/2fa/setup", auth.TwoFASetupPage)
			r.Get("/2fa/verify", auth.TwoFAVerifyPage)
			r.Post("/2fa/verify", auth.TwoFAVerifySubmit)
		})

		// Authenticated + 2FA-verified admin area.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			// Dashboard
			r.Get("/", admin.Dashboard)
			r.Get("/dashboard", admin.Dashboard)

			// Gate control — admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/gate", admin.GatePage)
				r.Post("/gate", admin.GateSave)
				r.Get("/mode", admin.ModeSwitch)
			})

			// Pages
			r.Route("/pages", func(r chi.Router) {
				r.Get("/", admin.PagesList)
				r.Get("/new", admin.PageNew)
				r.Post("/", admin.PageCreate)
				r.Get("/{id}", admin.PageEdit)
				r.Post("/{id}", admin.PageUpdate)
				r.Post("/{id}/delete", admin.PageDelete)
			})

			// User management — admin only
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", admin.UsersList)
				r.Get("/new", admin.UserNew)
				r.Post("/", admin.UserCreate)
				r.Post("/{id}/role", admin.UserSetRole)
				r.Post("/{id}/reset-2fa", admin.UserResetTwoFA)
			})
		})
	})

	// Read-only JSON API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", api.Status)
		r.Get("/pages", api.Pages)
	})

	// Background jobs, fired by an external scheduler.
	r.Post("/jobs/publish-due", jobs.PublishDue)

	// Public routes.
	r.Get("/", public.Home)
	r.Get("/{slug}", public.Page)
	r.NotFound(public.NotFound)

	return r
}

// identityFromSession maps the loaded session onto the gate's identity
// model. Only a fully verified admin session counts as elevated; editors
// see the placeholder like everyone else.
func identityFromSession(r *http.Request) gate.Identity {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return gate.Identity{}
	}
	return gate.Identity{
		Authenticated: true,
		Elevated:      sess.TwoFADone && sess.Role == "admin",
	}
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
