// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminPassword is the development-only admin password. Production
// refuses to start with it.
const DefaultAdminPassword = "changeme"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	SiteName string

	// Proxies whose forwarding headers are believed (TRUSTED_PROXIES,
	// comma-separated addresses or CIDRs). Empty trusts no one.
	TrustedProxies []netip.Prefix

	// Persistence: "memory", "file", "valkey", "postgres"
	StorageBackend string
	DataDir        string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache + sessions)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Admin access
	AdminPassword     string
	AdminPasswordHash string // bcrypt; takes precedence over AdminPassword
	AdminTOTPSecret   string

	// S3-compatible object storage for portfolio images
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// Visitor telemetry
	VisitorLogCap     int
	HeartbeatInterval time.Duration
	InactivityTimeout time.Duration
	GeoLookupURL      string // "%s" is replaced with the IP
	GeoIPDBPath       string

	// Notification channels
	NotifyEmail       string
	EmailRelayURL     string
	EmailEnabled      bool
	SlackWebhookURL   string
	SlackEnabled      bool
	DiscordWebhookURL string
	DiscordEnabled    bool
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Host:     envOrDefault("APP_HOST", "0.0.0.0"),
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		SiteName: envOrDefault("SITE_NAME", "Studio"),

		StorageBackend: strings.ToLower(envOrDefault("STORAGE_BACKEND", "file")),
		DataDir:        envOrDefault("DATA_DIR", "data"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "studiosite"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "studiosite"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AdminPassword:     envOrDefault("ADMIN_PASSWORD", DefaultAdminPassword),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminTOTPSecret:   os.Getenv("ADMIN_TOTP_SECRET"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "studiosite-media"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		GeoLookupURL: envOrDefault("GEO_LOOKUP_URL", "https://ipapi.co/%s/json/"),
		GeoIPDBPath:  os.Getenv("GEOIP_DB_PATH"),

		NotifyEmail:       os.Getenv("NOTIFY_EMAIL"),
		EmailRelayURL:     os.Getenv("EMAIL_RELAY_URL"),
		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
	}

	var err error
	if cfg.TrustedProxies, err = envPrefixes("TRUSTED_PROXIES"); err != nil {
		return nil, err
	}
	if cfg.VisitorLogCap, err = envInt("VISITOR_LOG_CAP", 100); err != nil {
		return nil, err
	}
	if cfg.VisitorLogCap <= 0 {
		return nil, fmt.Errorf("VISITOR_LOG_CAP must be positive")
	}
	if cfg.HeartbeatInterval, err = envDuration("HEARTBEAT_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.InactivityTimeout, err = envDuration("INACTIVITY_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EmailEnabled, err = envBool("NOTIFY_EMAIL_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.SlackEnabled, err = envBool("NOTIFY_SLACK_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.DiscordEnabled, err = envBool("NOTIFY_DISCORD_ENABLED", false); err != nil {
		return nil, err
	}

	switch cfg.StorageBackend {
	case "memory", "file", "valkey", "postgres":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND %q is not one of memory, file, valkey, postgres", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "valkey" && cfg.ValkeyHost == "" {
		return nil, fmt.Errorf("VALKEY_HOST must be set when STORAGE_BACKEND=valkey")
	}

	if cfg.Env == "production" {
		if cfg.AdminPasswordHash == "" && cfg.AdminPassword == DefaultAdminPassword {
			return nil, fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set in production")
		}
		if cfg.StorageBackend == "postgres" && cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasValkey reports whether a Valkey host is configured.
func (c *Config) HasValkey() bool {
	return c.ValkeyHost != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// envPrefixes parses a comma-separated list of IP addresses and CIDR
// prefixes. A bare address becomes a single-host prefix.
func envPrefixes(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, field := range strings.Split(os.Getenv(key), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			p, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
