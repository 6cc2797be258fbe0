// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// studio site. It organizes routes into public, beacon and admin groups
// with appropriate middleware stacks.
package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"studiosite/internal/cache"
	"studiosite/internal/handlers"
	"studiosite/internal/middleware"
	"studiosite/internal/session"
)

// Deps carries everything the router wires together. Cache and the rate
// limiters may be nil.
type Deps struct {
	Sessions *session.Store
	Public   *handlers.Public
	Visits   *handlers.Visits
	Auth     *handlers.Auth
	Admin    *handlers.Admin
	Cache    *cache.ResponseCache

	BeaconLimiter *middleware.RateLimiter
	LoginLimiter  *middleware.RateLimiter

	// TrustedProxies may set X-Forwarded-For / X-Real-IP.
	TrustedProxies []netip.Prefix

	// SecureCookies sets the Secure flag on the CSRF cookie.
	SecureCookies bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP(d.TrustedProxies))
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))

	// Health check: no auth, no CSRF.
	r.With(middleware.NoStore).Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// Public reads, cached in Valkey when available.
		r.Group(func(r chi.Router) {
			r.Use(d.Cache.Middleware)
			r.Get("/portfolio", d.Public.Portfolio)
			r.Get("/portfolio/categories", d.Public.Categories)
			r.Get("/portfolio/{id}", d.Public.PortfolioItem)
			r.Get("/content", d.Public.Content)
		})
		r.With(middleware.NoStore, limit(d.BeaconLimiter)).Post("/portfolio/{id}/view", d.Public.RecordView)

		// Visitor beacons.
		r.Route("/visits", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(limit(d.BeaconLimiter))
			r.Post("/", d.Visits.Start)
			r.Post("/{sid}/navigate", d.Visits.Navigate)
			r.Post("/{sid}/heartbeat", d.Visits.Heartbeat)
			r.Post("/{sid}/activity", d.Visits.Activity)
			r.Post("/{sid}/exit", d.Visits.Exit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.CSRF(d.SecureCookies))

			// Auth: accessible without a session.
			r.With(limit(d.LoginLimiter)).Post("/login", d.Auth.Login)
			r.Post("/logout", d.Auth.Logout)
			r.Get("/session", d.Auth.Session)

			// 2FA: requires auth but NOT completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.With(limit(d.LoginLimiter)).Post("/2fa/verify", d.Auth.Verify)
			})

			// Authenticated + 2FA-verified admin area.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.Require2FA(d.Auth.TwoFactorEnabled()))

				r.Get("/2fa/qr", d.Auth.QRCode)
				r.Get("/stats", d.Admin.Stats)

				r.Route("/portfolio", func(r chi.Router) {
					r.Get("/", d.Admin.PortfolioList)
					r.Post("/", d.Admin.PortfolioCreate)
					r.Get("/{id}", d.Admin.PortfolioGet)
					r.Put("/{id}", d.Admin.PortfolioUpdate)
					r.Patch("/{id}", d.Admin.PortfolioUpdate)
					r.Delete("/{id}", d.Admin.PortfolioDelete)
				})

				r.Route("/content", func(r chi.Router) {
					r.Get("/", d.Admin.ContentList)
					r.Post("/", d.Admin.ContentCreate)
					r.Get("/{id}", d.Admin.ContentGet)
					r.Put("/{id}", d.Admin.ContentUpdate)
					r.Delete("/{id}", d.Admin.ContentDelete)
				})

				r.Get("/visitors", d.Admin.Visitors)
				r.Get("/visitors/stats", d.Admin.VisitorStats)
				r.Post("/media", d.Admin.MediaUpload)
			})
		})
	})

	return r
}

// limit returns the limiter's middleware, or a pass-through when rl is nil.
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
