// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"studiosite/internal/cache"
	"studiosite/internal/config"
	"studiosite/internal/database"
	"studiosite/internal/kv"
)

// app holds state shared by every command.
type app struct {
	envFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "studiosite",
		Short:        "Design studio site API, visitor telemetry and notifications",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(a.envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "file with environment variables to load before the configuration")

	root.AddCommand(
		a.serveCmd(),
		a.portfolioCmd(),
		a.visitorsCmd(),
		a.totpCmd(),
	)
	return root
}

// resources are the connections opened for a command. Fields other than
// kv are nil when not configured.
type resources struct {
	kv     kv.Backend
	db     *sql.DB
	valkey *redis.Client
}

// open connects the persistence backend selected by STORAGE_BACKEND, plus
// Valkey whenever VALKEY_HOST is set.
func (a *app) open(ctx context.Context) (*resources, error) {
	cfg := a.cfg
	res := &resources{}

	if cfg.HasValkey() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			return nil, fmt.Errorf("connect to valkey: %w", err)
		}
		res.valkey = client
	}

	switch cfg.StorageBackend {
	case "memory":
		res.kv = kv.NewMemory()
	case "file":
		f, err := kv.NewFile(cfg.DataDir)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("open data directory: %w", err)
		}
		res.kv = f
	case "valkey":
		res.kv = kv.NewValkey(res.valkey)
	case "postgres":
		db, err := database.Connect(ctx, cfg.DSN())
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		res.db = db
		if err := database.Migrate(db); err != nil {
			res.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		res.kv = kv.NewPostgres(db)
	default:
		res.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	slog.Debug("storage backend opened", "backend", cfg.StorageBackend)
	return res, nil
}

// Close releases every open connection.
func (r *resources) Close() {
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			slog.Warn("close database", "error", err)
		}
	}
	if r.valkey != nil {
		if err := r.valkey.Close(); err != nil {
			slog.Warn("close valkey", "error", err)
		}
	}
}
