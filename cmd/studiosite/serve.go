// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"studiosite/internal/cache"
	"studiosite/internal/handlers"
	"studiosite/internal/middleware"
	"studiosite/internal/notify"
	"studiosite/internal/router"
	"studiosite/internal/session"
	"studiosite/internal/storage"
	"studiosite/internal/store"
	"studiosite/internal/telemetry"
)

const (
	// Per client IP.
	beaconLimit  = 120
	beaconWindow = time.Minute

	loginLimit  = 10
	loginWindow = 15 * time.Minute

	shutdownTimeout = 30 * time.Second
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"backend", cfg.StorageBackend,
	)

	res, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer res.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()

	var (
		sessionStore  *session.Store
		responseCache *cache.ResponseCache
	)
	if res.valkey != nil {
		sessionStore = session.NewStore(res.valkey, secureCookies)
		responseCache = cache.NewResponseCache(res.valkey, cache.DefaultResponseTTL)
	} else {
		slog.Warn("valkey not configured, sessions kept in memory and responses uncached")
		sessionStore = session.NewMemoryStore(secureCookies)
	}

	portfolio := store.NewPortfolioStore(res.kv)
	entries := store.NewEntryStore(res.kv)
	visitors := store.NewVisitorLog(res.kv, cfg.VisitorLogCap)

	// Seed development data (no-op if items already exist).
	if cfg.IsDev() {
		store.SeedPortfolio(ctx, portfolio)
	}

	// Object storage is optional; uploads are disabled without it.
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	if err != nil {
		return fmt.Errorf("initialize S3 storage: %w", err)
	}
	if storageClient != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, image uploads disabled")
	}

	dispatcher := notify.FromConfig(cfg)
	slog.Info("notification channels", "enabled", dispatcher.Channels())

	geo, err := telemetry.NewGeoIP(cfg.GeoIPDBPath)
	if err != nil {
		return fmt.Errorf("open geoip database: %w", err)
	}
	defer geo.Close()

	tracker := telemetry.NewTracker(visitors, telemetry.Options{
		Site:              cfg.SiteName,
		HeartbeatInterval: cfg.HeartbeatInterval,
		InactivityTimeout: cfg.InactivityTimeout,
		Resolver:          telemetry.NewEnricher(cfg.GeoLookupURL, geo),
		Notifier:          dispatcher,
	})

	beaconLimiter := middleware.NewRateLimiter(beaconLimit, beaconWindow)
	defer beaconLimiter.Stop()
	loginLimiter := middleware.NewRateLimiter(loginLimit, loginWindow)
	defer loginLimiter.Stop()

	auth := handlers.NewAuth(sessionStore, handlers.Credentials{
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		TOTPSecret:   cfg.AdminTOTPSecret,
		Issuer:       cfg.SiteName,
	})
	if !auth.TwoFactorEnabled() {
		slog.Warn("admin two-factor authentication disabled, set ADMIN_TOTP_SECRET to enable it")
	}

	r := router.New(router.Deps{
		Sessions:      sessionStore,
		Public:        handlers.NewPublic(portfolio, entries, responseCache),
		Visits:        handlers.NewVisits(tracker),
		Auth:          auth,
		Admin:         handlers.NewAdmin(portfolio, entries, visitors, tracker, storageClient, responseCache),
		Cache:         responseCache,
		BeaconLimiter: beaconLimiter,
		LoginLimiter:  loginLimiter,
		SecureCookies: secureCookies,

		TrustedProxies: cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		// Give active requests time to complete, then stop the session
		// timers and let queued notifications finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		tracker.Close()
		dispatcher.Wait()
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
