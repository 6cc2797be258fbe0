// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// newGeoServer serves the geo endpoint at /geo/{ip}/json/ and counts calls.
func newGeoServer(t *testing.T, body string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/geo/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/json/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestEnricher_PublicClientIP(t *testing.T) {
	srv, calls := newGeoServer(t, `{"city":"Lisbon","country_name":"Portugal"}`, http.StatusOK)
	e := NewEnricher(srv.URL+"/geo/%s/json/", nil)

	got, err := e.Resolve(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.IP != "203.0.113.7" {
		t.Errorf("IP = %q, want the client address", got.IP)
	}
	if got.Location != "Lisbon, Portugal" {
		t.Errorf("Location = %q", got.Location)
	}
	if calls.Load() != 1 {
		t.Errorf("geo lookups = %d, want 1", calls.Load())
	}
}

func TestEnricher_PrivateClientIPLeftEmpty(t *testing.T) {
	srv, calls := newGeoServer(t, `{"city":"Falkenstein","country_name":"Germany"}`, http.StatusOK)
	e := NewEnricher(srv.URL+"/geo/%s/json/", nil)

	for _, client := range []string{"10.1.1.1", "192.168.7.7", "127.0.0.1", "::1", ""} {
		got, err := e.Resolve(context.Background(), client)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", client, err)
		}
		if got != (Enrichment{}) {
			t.Errorf("Resolve(%q) = %+v, want no IP or location", client, got)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("geo lookups = %d for private clients, want 0", calls.Load())
	}
}

func TestEnricher_Failures(t *testing.T) {
	t.Run("geo service down keeps ip", func(t *testing.T) {
		srv, _ := newGeoServer(t, `{}`, http.StatusTooManyRequests)
		e := NewEnricher(srv.URL+"/geo/%s/json/", nil)

		got, err := e.Resolve(context.Background(), "203.0.113.7")
		if err == nil || !strings.Contains(err.Error(), "status 429") {
			t.Fatalf("expected geo status error, got %v", err)
		}
		if got.IP != "203.0.113.7" || got.Location != "" {
			t.Errorf("got %+v, want IP only", got)
		}
	})

	t.Run("geo service error body", func(t *testing.T) {
		srv, _ := newGeoServer(t, `{"error":true,"reason":"RateLimited"}`, http.StatusOK)
		e := NewEnricher(srv.URL+"/geo/%s/json/", nil)

		_, err := e.Resolve(context.Background(), "203.0.113.7")
		if err == nil || !strings.Contains(err.Error(), "RateLimited") {
			t.Fatalf("expected service error, got %v", err)
		}
	})

	t.Run("geo service returns garbage", func(t *testing.T) {
		srv, _ := newGeoServer(t, `not json`, http.StatusOK)
		e := NewEnricher(srv.URL+"/geo/%s/json/", nil)

		got, err := e.Resolve(context.Background(), "203.0.113.7")
		if err == nil || !strings.Contains(err.Error(), "decode") {
			t.Fatalf("expected decode error, got %v", err)
		}
		if got.Location != "" {
			t.Errorf("Location = %q, want empty", got.Location)
		}
	})

	t.Run("no geo service configured", func(t *testing.T) {
		e := NewEnricher("", nil)
		got, err := e.Resolve(context.Background(), "203.0.113.7")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got.IP != "203.0.113.7" || got.Location != "" {
			t.Errorf("got %+v", got)
		}
	})
}

func TestVisitorIP(t *testing.T) {
	tests := []struct {
		client, reported, want string
	}{
		{"203.0.113.7", "198.51.100.9", "203.0.113.7"},
		{"10.1.1.1", "198.51.100.9", "198.51.100.9"},
		{"10.1.1.1", "::ffff:198.51.100.9", "198.51.100.9"},
		{"10.1.1.1", "192.168.7.7", "10.1.1.1"},
		{"127.0.0.1", "", "127.0.0.1"},
		{"127.0.0.1", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		if got := VisitorIP(tt.client, tt.reported); got != tt.want {
			t.Errorf("VisitorIP(%q, %q) = %q, want %q", tt.client, tt.reported, got, tt.want)
		}
	}
}

func TestIsPublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"203.0.113.7", true},
		{"2001:db8::1", true},
		{"::ffff:203.0.113.7", true},
		{"127.0.0.1", false},
		{"10.0.0.1", false},
		{"172.16.5.4", false},
		{"192.168.0.1", false},
		{"169.254.1.1", false},
		{"fd00::1", false},
		{"::1", false},
		{"0.0.0.0", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := isPublicIP(tt.ip); got != tt.want {
			t.Errorf("isPublicIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestNewGeoIP(t *testing.T) {
	g, err := NewGeoIP("  ")
	if err != nil || g != nil {
		t.Fatalf("NewGeoIP(blank) = %v, %v; want nil, nil", g, err)
	}
	if loc, ok := g.Lookup("203.0.113.7"); ok || loc != "" {
		t.Errorf("nil GeoIP Lookup = %q, %v", loc, ok)
	}
	if err := g.Close(); err != nil {
		t.Errorf("nil GeoIP Close: %v", err)
	}

	if _, err := NewGeoIP(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Error("NewGeoIP should fail for a missing database")
	}
}

func TestJoinLocation(t *testing.T) {
	if got := joinLocation("Lisbon", " Portugal "); got != "Lisbon, Portugal" {
		t.Errorf("joinLocation = %q", got)
	}
	if got := joinLocation("", "Portugal"); got != "Portugal" {
		t.Errorf("joinLocation = %q", got)
	}
	if got := joinLocation(" ", ""); got != "" {
		t.Errorf("joinLocation = %q", got)
	}
}
