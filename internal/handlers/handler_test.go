// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the handler
// tests. Every store runs on the in-memory kv backend.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"studiosite/internal/kv"
	"studiosite/internal/middleware"
	"studiosite/internal/models"
	"studiosite/internal/session"
	"studiosite/internal/store"
)

// testEnv holds the stores behind a set of handlers.
type testEnv struct {
	portfolio *store.PortfolioStore
	entries   *store.EntryStore
	visitors  *store.VisitorLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := kv.NewMemory()
	return &testEnv{
		portfolio: store.NewPortfolioStore(backend),
		entries:   store.NewEntryStore(backend),
		visitors:  store.NewVisitorLog(backend, 20),
	}
}

// addItem stores a portfolio item and fails the test on error.
func (e *testEnv) addItem(t *testing.T, title, category string, status models.PortfolioStatus) *models.PortfolioItem {
	t.Helper()
	item, err := e.portfolio.Add(context.Background(), models.PortfolioInput{
		Title:       title,
		Category:    category,
		Image:       "https://img.test/" + strings.ToLower(title) + ".png",
		Description: "About **" + title + "**",
		Status:      status,
	})
	if err != nil {
		t.Fatalf("add %q: %v", title, err)
	}
	return item
}

// serve runs h for a request whose chi URL params are set from params
// (name, value pairs).
func serve(h http.HandlerFunc, req *http.Request, params ...string) *httptest.ResponseRecorder {
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func jsonRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// withSession attaches session data the way middleware.LoadSession does.
func withSession(req *http.Request, data *session.Data) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, data))
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rr)["error"]
}

func TestReadBodyLimit(t *testing.T) {
	big := strings.Repeat("a", maxJSONBody+1)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	rr := httptest.NewRecorder()

	var dst map[string]any
	err := decodeJSON(rr, req, &dst)
	if err != errBodyTooLarge {
		t.Fatalf("err = %v, want errBodyTooLarge", err)
	}
	writeBodyError(rr, err)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	dst := map[string]string{"kept": "yes"}
	if err := decodeJSON(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if dst["kept"] != "yes" {
		t.Error("empty body should leave dst untouched")
	}
}
