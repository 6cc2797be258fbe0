// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"studiosite/internal/middleware"
	"studiosite/internal/session"
	"studiosite/internal/twofa"
)

// Credentials is the single admin principal. PasswordHash (bcrypt) takes
// precedence over Password. An empty TOTPSecret disables the second factor.
type Credentials struct {
	Password     string
	PasswordHash string
	TOTPSecret   string
	Issuer       string
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions *session.Store
	creds    Credentials
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Store, creds Credentials) *Auth {
	return &Auth{sessions: sessions, creds: creds}
}

// TwoFactorEnabled reports whether a TOTP secret is configured.
func (a *Auth) TwoFactorEnabled() bool {
	return a.creds.TOTPSecret != ""
}

type loginRequest struct {
	Password string `json:"password"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// checkPassword compares the submitted password with the configured one.
func (a *Auth) checkPassword(password string) bool {
	if a.creds.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.creds.PasswordHash), []byte(password)) == nil
	}
	if a.creds.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.creds.Password), []byte(password)) == 1
}

// Login checks the admin password and opens a session. When 2FA is
// configured the session is not usable until Verify succeeds.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	if !a.checkPassword(req.Password) {
		slog.Warn("admin login failed", "remote", middleware.ClientIP(r))
		writeError(w, http.StatusUnauthorized, "Invalid password.")
		return
	}

	data := &session.Data{Admin: true, TwoFADone: !a.TwoFactorEnabled()}
	if _, err := a.sessions.Create(r.Context(), w, data); err != nil {
		slog.Error("session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"authenticated":     true,
		"twoFactorRequired": !data.TwoFADone,
	})
}

// Session reports the caller's authentication state for the admin UI.
func (a *Auth) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	authenticated := sess != nil && sess.Admin
	writeJSON(w, http.StatusOK, map[string]bool{
		"authenticated":     authenticated,
		"twoFactorEnabled":  a.TwoFactorEnabled(),
		"twoFactorRequired": authenticated && a.TwoFactorEnabled() && !sess.TwoFADone,
	})
}

// Verify validates the TOTP code and completes authentication.
func (a *Auth) Verify(w http.ResponseWriter, r *http.Request) {
	if !a.TwoFactorEnabled() {
		writeError(w, http.StatusNotFound, "Two-factor authentication is not configured.")
		return
	}
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil || !sess.Admin {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if !twofa.Validate(req.Code, a.creds.TOTPSecret) {
		writeError(w, http.StatusUnauthorized, "Invalid code. Please try again.")
		return
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true, "twoFactorRequired": false})
}

// QRCode renders the enrolment QR code for another authenticator device.
// It sits behind the second factor, so only a verified session can read
// the shared secret.
func (a *Auth) QRCode(w http.ResponseWriter, r *http.Request) {
	if !a.TwoFactorEnabled() {
		writeError(w, http.StatusNotFound, "Two-factor authentication is not configured.")
		return
	}

	key, err := twofa.Key(a.creds.TOTPSecret, a.creds.Issuer)
	if err != nil {
		slog.Error("totp key failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	png, err := twofa.QRCode(key)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
