// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"studiosite/internal/session"
)

const totpSecret = "JBSWY3DPEHPK3PXP"

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoginPassword(t *testing.T) {
	sessions := session.NewMemoryStore(false)
	auth := NewAuth(sessions, Credentials{Password: "hunter2"})

	rr := serve(auth.Login, jsonRequest(http.MethodPost, "/api/admin/login", `{"password":"wrong"}`))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "Invalid password." {
		t.Errorf("error = %q", msg)
	}

	rr = serve(auth.Login, jsonRequest(http.MethodPost, "/api/admin/login", `{"password":"hunter2"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d", rr.Code)
	}
	if body := decodeBody[map[string]bool](t, rr); body["twoFactorRequired"] {
		t.Error("2FA should not be required without a secret")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rr))
	data, err := sessions.Get(context.Background(), req)
	if err != nil || data == nil {
		t.Fatalf("session lookup = %v, %v", data, err)
	}
	if !data.Admin || !data.TwoFADone {
		t.Errorf("session = %+v", data)
	}
}

func TestLoginPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	auth := NewAuth(session.NewMemoryStore(false), Credentials{Password: "ignored", PasswordHash: string(hash)})

	tests := []struct {
		password string
		want     int
	}{
		{"s3cret", http.StatusOK},
		{"ignored", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rr := serve(auth.Login, jsonRequest(http.MethodPost, "/", `{"password":"`+tt.password+`"}`))
		if rr.Code != tt.want {
			t.Errorf("password %q status = %d, want %d", tt.password, rr.Code, tt.want)
		}
	}
}

func TestLoginEmptyConfiguredPassword(t *testing.T) {
	auth := NewAuth(session.NewMemoryStore(false), Credentials{})
	rr := serve(auth.Login, jsonRequest(http.MethodPost, "/", `{"password":""}`))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestTwoFactorFlow(t *testing.T) {
	sessions := session.NewMemoryStore(false)
	auth := NewAuth(sessions, Credentials{Password: "hunter2", TOTPSecret: totpSecret, Issuer: "Studio"})

	rr := serve(auth.Login, jsonRequest(http.MethodPost, "/", `{"password":"hunter2"}`))
	if body := decodeBody[map[string]bool](t, rr); !body["twoFactorRequired"] {
		t.Fatal("login should require 2FA")
	}
	cookie := sessionCookie(t, rr)

	load := func() *session.Data {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		data, err := sessions.Get(context.Background(), req)
		if err != nil || data == nil {
			t.Fatalf("session lookup = %v, %v", data, err)
		}
		return data
	}

	verify := func(code string) *httptest.ResponseRecorder {
		req := jsonRequest(http.MethodPost, "/api/admin/2fa/verify", `{"code":"`+code+`"}`)
		req.AddCookie(cookie)
		return serve(auth.Verify, withSession(req, load()))
	}

	if rr := verify("12345"); rr.Code != http.StatusUnauthorized {
		t.Errorf("bad code status = %d", rr.Code)
	}
	if load().TwoFADone {
		t.Fatal("bad code must not complete 2FA")
	}

	code, err := totp.GenerateCode(totpSecret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if rr := verify(code); rr.Code != http.StatusOK {
		t.Fatalf("good code status = %d: %s", rr.Code, rr.Body.String())
	}
	if !load().TwoFADone {
		t.Error("session should be verified")
	}
}

func TestVerifyWithoutSecret(t *testing.T) {
	auth := NewAuth(session.NewMemoryStore(false), Credentials{Password: "x"})
	req := withSession(jsonRequest(http.MethodPost, "/", `{"code":"123456"}`), &session.Data{Admin: true})
	if rr := serve(auth.Verify, req); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestQRCode(t *testing.T) {
	auth := NewAuth(session.NewMemoryStore(false), Credentials{TOTPSecret: totpSecret, Issuer: "Studio"})
	rr := serve(auth.QRCode, httptest.NewRequest(http.MethodGet, "/api/admin/2fa/qr", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	disabled := NewAuth(session.NewMemoryStore(false), Credentials{})
	if rr := serve(disabled.QRCode, httptest.NewRequest(http.MethodGet, "/", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("disabled status = %d", rr.Code)
	}
}

func TestSessionState(t *testing.T) {
	auth := NewAuth(session.NewMemoryStore(false), Credentials{TOTPSecret: totpSecret})

	tests := []struct {
		name string
		sess *session.Data
		want map[string]bool
	}{
		{"anonymous", nil, map[string]bool{"authenticated": false, "twoFactorEnabled": true, "twoFactorRequired": false}},
		{"pending", &session.Data{Admin: true}, map[string]bool{"authenticated": true, "twoFactorEnabled": true, "twoFactorRequired": true}},
		{"verified", &session.Data{Admin: true, TwoFADone: true}, map[string]bool{"authenticated": true, "twoFactorEnabled": true, "twoFactorRequired": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.sess != nil {
				req = withSession(req, tt.sess)
			}
			got := decodeBody[map[string]bool](t, serve(auth.Session, req))
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestLogout(t *testing.T) {
	sessions := session.NewMemoryStore(false)
	auth := NewAuth(sessions, Credentials{Password: "hunter2"})
	cookie := sessionCookie(t, serve(auth.Login, jsonRequest(http.MethodPost, "/", `{"password":"hunter2"}`)))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.AddCookie(cookie)
	if rr := serve(auth.Logout, req); rr.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if data, _ := sessions.Get(context.Background(), req); data != nil {
		t.Error("session should be gone after logout")
	}
}
