// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studiosite/internal/middleware"
	"studiosite/internal/telemetry"
)

// Visits receives the browser's telemetry beacons. Bodies may arrive as
// text/plain from navigator.sendBeacon, so the content type is not checked.
type Visits struct {
	tracker *telemetry.Tracker
}

// NewVisits creates a new Visits handler group.
func NewVisits(tracker *telemetry.Tracker) *Visits {
	return &Visits{tracker: tracker}
}

type startRequest struct {
	Page             string `json:"page"`
	Referrer         string `json:"referrer"`
	ScreenResolution string `json:"screenResolution"`
	UserAgent        string `json:"userAgent"`
	// IP is the address the browser resolved for itself.
	IP string `json:"ip"`
}

type navigateRequest struct {
	Page string `json:"page"`
}

// Start opens a visit session and returns its id.
func (v *Visits) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.Referrer == "" {
		req.Referrer = r.Referer()
	}
	if msg := validateVisit(req.Page, req.Referrer, req.UserAgent, req.ScreenResolution); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rec, err := v.tracker.Start(r.Context(), telemetry.Visit{
		Page:             req.Page,
		UserAgent:        req.UserAgent,
		Referrer:         req.Referrer,
		ScreenResolution: req.ScreenResolution,
		ClientIP:         middleware.ClientIP(r),
		ReportedIP:       req.IP,
	})
	if err != nil {
		v.writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": rec.SessionID,
		"record":    rec,
	})
}

// Navigate records a page change within the session.
func (v *Visits) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Page == "" || len(req.Page) > maxPageLen {
		writeError(w, http.StatusBadRequest, "Page is required.")
		return
	}

	rec, err := v.tracker.Navigate(r.Context(), chi.URLParam(r, "sid"), req.Page)
	if err != nil {
		v.writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Heartbeat marks the session alive and refreshes its time on site.
func (v *Visits) Heartbeat(w http.ResponseWriter, r *http.Request) {
	secs, err := v.tracker.Heartbeat(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		v.writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"timeOnSite": secs})
}

// Activity resets the session's inactivity timer.
func (v *Visits) Activity(w http.ResponseWriter, r *http.Request) {
	if err := v.tracker.Activity(chi.URLParam(r, "sid")); err != nil {
		v.writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Exit ends the session and reports the final time on site.
func (v *Visits) Exit(w http.ResponseWriter, r *http.Request) {
	elapsed, err := v.tracker.Exit(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		v.writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"timeOnSite": int(elapsed.Seconds())})
}

func (v *Visits) writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, telemetry.ErrUnknownSession):
		writeError(w, http.StatusNotFound, "Unknown visit session.")
	case errors.Is(err, telemetry.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Telemetry is shutting down.")
	default:
		slog.Error("visit beacon failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
