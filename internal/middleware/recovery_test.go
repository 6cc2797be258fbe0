// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecoverer(t *testing.T) {
	logs := captureLogs(t)
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something broke")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
	if msg := errorBody(t, rr); msg != "Internal Server Error" {
		t.Errorf("error = %q", msg)
	}
	if !strings.Contains(logs.String(), "something broke") {
		t.Errorf("panic value not logged: %s", logs.String())
	}
}

func TestRecovererNoPanic(t *testing.T) {
	next, called := okHandler()
	rr := httptest.NewRecorder()
	Recoverer(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !*called || rr.Code != http.StatusOK {
		t.Errorf("called=%v status=%d", *called, rr.Code)
	}
}

func TestRecovererRepanicsAbort(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ErrAbortHandler should propagate")
}
