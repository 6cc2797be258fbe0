// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"studiosite/internal/cache"
	"studiosite/internal/handlers"
	"studiosite/internal/kv"
	"studiosite/internal/middleware"
	"studiosite/internal/models"
	"studiosite/internal/session"
	"studiosite/internal/store"
	"studiosite/internal/telemetry"
)

const testPassword = "hunter2"

type testServer struct {
	*httptest.Server
	portfolio *store.PortfolioStore
	tracker   *telemetry.Tracker
	client    *http.Client
	csrf      string
}

// testDeps builds router dependencies over in-memory stores. A non-nil
// redis client enables the response cache.
func testDeps(t *testing.T, rdb *redis.Client) (Deps, *store.PortfolioStore, *telemetry.Tracker) {
	t.Helper()

	backend := kv.NewMemory()
	portfolio := store.NewPortfolioStore(backend)
	entries := store.NewEntryStore(backend)
	visitors := store.NewVisitorLog(backend, 50)
	tracker := telemetry.NewTracker(visitors, telemetry.Options{Site: "Studio"})
	t.Cleanup(tracker.Close)

	responseCache := cache.NewResponseCache(rdb, time.Minute)
	sessions := session.NewMemoryStore(false)
	auth := handlers.NewAuth(sessions, handlers.Credentials{Password: testPassword, Issuer: "Studio"})

	beacons := middleware.NewRateLimiter(1000, time.Minute)
	t.Cleanup(beacons.Stop)

	d := Deps{
		Sessions:      sessions,
		Public:        handlers.NewPublic(portfolio, entries, responseCache),
		Visits:        handlers.NewVisits(tracker),
		Auth:          auth,
		Admin:         handlers.NewAdmin(portfolio, entries, visitors, tracker, nil, responseCache),
		Cache:         responseCache,
		BeaconLimiter: beacons,
	}
	return d, portfolio, tracker
}

// newTestServer serves the full router over in-memory stores.
func newTestServer(t *testing.T, rdb *redis.Client) *testServer {
	t.Helper()

	d, portfolio, tracker := testDeps(t, rdb)
	srv := httptest.NewServer(New(d))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testServer{
		Server:    srv,
		portfolio: portfolio,
		tracker:   tracker,
		client:    &http.Client{Jar: jar},
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if ts.csrf != "" {
		req.Header.Set(middleware.CSRFHeaderName, ts.csrf)
	}
	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CSRFCookieName {
			ts.csrf = c.Value
		}
	}
	return resp
}

// login fetches a CSRF token and signs in as the admin.
func (ts *testServer) login(t *testing.T) {
	t.Helper()
	ts.do(t, http.MethodGet, "/api/admin/session", "")
	if ts.csrf == "" {
		t.Fatal("no CSRF cookie issued")
	}
	resp := ts.do(t, http.MethodPost, "/api/admin/login", `{"password":"`+testPassword+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestRouterGlobalMiddleware(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodGet, "/health", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Error("health should not be cached")
	}
}

func TestRouterAdminRequiresAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/api/admin/stats", "/api/admin/portfolio", "/api/admin/visitors", "/api/admin/2fa/qr"} {
		if resp := ts.do(t, http.MethodGet, path, ""); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestRouterAdminWriteNeedsCSRF(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t)

	token := ts.csrf
	ts.csrf = ""
	resp := ts.do(t, http.MethodPost, "/api/admin/portfolio", `{"title":"x","category":"logo","description":"d","status":"draft"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status without token = %d, want 403", resp.StatusCode)
	}
	ts.csrf = token
}

func TestRouterPortfolioFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t)

	resp := ts.do(t, http.MethodPost, "/api/admin/portfolio",
		`{"title":"Logo A","category":"logo","image":"http://x/y.png","description":"brand mark","status":"active"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decode[models.PortfolioItem](t, resp)

	resp = ts.do(t, http.MethodGet, "/api/portfolio?category=logo", "")
	list := decode[[]map[string]any](t, resp)
	if len(list) != 1 || list[0]["id"] != created.ID {
		t.Fatalf("public list = %v", list)
	}

	resp = ts.do(t, http.MethodPost, "/api/portfolio/"+created.ID+"/view", "")
	if views := decode[map[string]int](t, resp); views["views"] != 1 {
		t.Errorf("views = %v", views)
	}

	resp = ts.do(t, http.MethodDelete, "/api/admin/portfolio/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodGet, "/api/portfolio/"+created.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted item status = %d", resp.StatusCode)
	}
}

func TestRouterVisitBeacons(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/visits", `{"page":"/","screenResolution":"1920x1080"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	started := decode[map[string]any](t, resp)
	sid, _ := started["sessionId"].(string)
	if sid == "" {
		t.Fatal("no session id returned")
	}

	for _, beacon := range []string{"heartbeat", "activity"} {
		if resp := ts.do(t, http.MethodPost, "/api/visits/"+sid+"/"+beacon, ""); resp.StatusCode >= 300 {
			t.Errorf("%s status = %d", beacon, resp.StatusCode)
		}
	}
	if resp := ts.do(t, http.MethodPost, "/api/visits/"+sid+"/exit", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("exit status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/visits/"+sid+"/heartbeat", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("heartbeat after exit = %d, want 404", resp.StatusCode)
	}
}

func TestRouterResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ts := newTestServer(t, rdb)

	if resp := ts.do(t, http.MethodGet, "/api/portfolio", ""); resp.Header.Get(cache.HeaderCache) != "MISS" {
		t.Errorf("first request X-Cache = %q", resp.Header.Get(cache.HeaderCache))
	}
	if resp := ts.do(t, http.MethodGet, "/api/portfolio", ""); resp.Header.Get(cache.HeaderCache) != "HIT" {
		t.Errorf("second request X-Cache = %q", resp.Header.Get(cache.HeaderCache))
	}

	ts.login(t)
	resp := ts.do(t, http.MethodPost, "/api/admin/portfolio",
		`{"title":"Site B","category":"web","description":"landing page","status":"active"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/portfolio", "")
	if resp.Header.Get(cache.HeaderCache) != "MISS" {
		t.Errorf("after write X-Cache = %q, want MISS", resp.Header.Get(cache.HeaderCache))
	}
	if list := decode[[]map[string]any](t, resp); len(list) != 1 {
		t.Errorf("list after write has %d items, want 1", len(list))
	}
}

func TestRouterViewBeaconRefreshesCachedPortfolio(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ts := newTestServer(t, rdb)
	item, err := ts.portfolio.Add(context.Background(), models.PortfolioInput{
		Title: "Logo A", Category: "logo", Description: "brand mark", Status: models.PortfolioStatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}

	paths := []string{"/api/portfolio", "/api/portfolio?category=logo", "/api/portfolio/" + item.ID}
	for _, path := range paths {
		ts.do(t, http.MethodGet, path, "")
		if resp := ts.do(t, http.MethodGet, path, ""); resp.Header.Get(cache.HeaderCache) != "HIT" {
			t.Fatalf("%s X-Cache = %q, want HIT", path, resp.Header.Get(cache.HeaderCache))
		}
	}

	if resp := ts.do(t, http.MethodPost, "/api/portfolio/"+item.ID+"/view", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("view status = %d", resp.StatusCode)
	}

	for _, path := range paths[:2] {
		resp := ts.do(t, http.MethodGet, path, "")
		if resp.Header.Get(cache.HeaderCache) != "MISS" {
			t.Errorf("%s after view X-Cache = %q, want MISS", path, resp.Header.Get(cache.HeaderCache))
		}
		if list := decode[[]models.PortfolioItem](t, resp); len(list) != 1 || list[0].Views != 1 {
			t.Errorf("%s after view = %+v, want one item with 1 view", path, list)
		}
	}
	resp := ts.do(t, http.MethodGet, paths[2], "")
	if resp.Header.Get(cache.HeaderCache) != "MISS" {
		t.Errorf("detail after view X-Cache = %q, want MISS", resp.Header.Get(cache.HeaderCache))
	}
	if got := decode[models.PortfolioItem](t, resp); got.Views != 1 {
		t.Errorf("detail views = %d, want 1", got.Views)
	}
}

func TestLoginLimiterUsesTrustedClientAddress(t *testing.T) {
	tests := []struct {
		name        string
		trusted     []netip.Prefix
		remoteAddr  string
		wantLimited int
	}{
		// Rotating X-Forwarded-For from a direct client is one client.
		{"untrusted peer", nil, "198.51.100.7:5555", 18},
		// Behind a trusted proxy each forwarded address is its own client.
		{"trusted proxy", []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")}, "192.0.2.1:443", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := testDeps(t, nil)
			d.LoginLimiter = middleware.NewRateLimiter(2, time.Minute)
			t.Cleanup(d.LoginLimiter.Stop)
			d.TrustedProxies = tt.trusted
			r := New(d)

			limited := 0
			for i := 0; i < 20; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password":"wrong"}`))
				req.RemoteAddr = tt.remoteAddr
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
				req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "token"})
				req.Header.Set(middleware.CSRFHeaderName, "token")

				rr := httptest.NewRecorder()
				r.ServeHTTP(rr, req)
				switch rr.Code {
				case http.StatusTooManyRequests:
					limited++
				case http.StatusUnauthorized:
				default:
					t.Fatalf("request %d status = %d", i, rr.Code)
				}
			}
			if limited != tt.wantLimited {
				t.Errorf("limited %d of 20 logins, want %d", limited, tt.wantLimited)
			}
		})
	}
}
