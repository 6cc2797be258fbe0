// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studiosite/internal/cache"
	"studiosite/internal/models"
	"studiosite/internal/storage"
	"studiosite/internal/store"
)

// ActiveCounter reports the number of open visit sessions.
type ActiveCounter interface {
	Active() int
}

// Admin groups all admin API handlers and their dependencies.
type Admin struct {
	portfolio *store.PortfolioStore
	entries   *store.EntryStore
	visitors  *store.VisitorLog
	sessions  ActiveCounter
	storage   *storage.Client
	cache     *cache.ResponseCache
}

// NewAdmin creates a new Admin handler group. storageClient and
// responseCache may be nil when S3 or Valkey are not configured.
func NewAdmin(portfolio *store.PortfolioStore, entries *store.EntryStore, visitors *store.VisitorLog, sessions ActiveCounter, storageClient *storage.Client, responseCache *cache.ResponseCache) *Admin {
	return &Admin{
		portfolio: portfolio,
		entries:   entries,
		visitors:  visitors,
		sessions:  sessions,
		storage:   storageClient,
		cache:     responseCache,
	}
}

// invalidate drops every cached public response after a write.
func (a *Admin) invalidate(ctx context.Context) {
	a.cache.InvalidateAll(ctx)
}

// --- Portfolio ---

// PortfolioList returns every item, including drafts. ?status= filters.
func (a *Admin) PortfolioList(w http.ResponseWriter, r *http.Request) {
	status := models.PortfolioStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status.")
		return
	}

	items := a.portfolio.List(r.Context())
	if status != "" {
		filtered := []models.PortfolioItem{}
		for _, item := range items {
			if item.Status == status {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	writeJSON(w, http.StatusOK, items)
}

// PortfolioGet returns one item regardless of status.
func (a *Admin) PortfolioGet(w http.ResponseWriter, r *http.Request) {
	item := a.portfolio.GetByID(r.Context(), chi.URLParam(r, "id"))
	if item == nil {
		writeError(w, http.StatusNotFound, "Portfolio item not found.")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// PortfolioCreate adds a new item.
func (a *Admin) PortfolioCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	in, err := models.DecodePortfolioInput(body)
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	if msg := validatePortfolioInput(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := a.portfolio.Add(r.Context(), in)
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	a.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, item)
}

// PortfolioUpdate applies a partial update.
func (a *Admin) PortfolioUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	patch, err := models.DecodePortfolioPatch(body)
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	if msg := validatePortfolioPatch(patch); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := a.portfolio.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Portfolio item not found.")
		return
	}
	a.invalidate(r.Context())
	writeJSON(w, http.StatusOK, item)
}

// PortfolioDelete removes an item and, best-effort, the image it owned in
// object storage.
func (a *Admin) PortfolioDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	item := a.portfolio.GetByID(ctx, id)
	if item == nil || !a.portfolio.Remove(ctx, id) {
		writeError(w, http.StatusNotFound, "Portfolio item not found.")
		return
	}

	if a.storage != nil {
		if key, ok := a.storage.ExtractKey(item.Image); ok {
			if err := a.storage.Delete(ctx, key); err != nil {
				slog.Warn("delete portfolio image failed", "key", key, "error", err)
			}
		}
	}

	a.invalidate(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func writePortfolioError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrImmutableField):
		writeError(w, http.StatusBadRequest, "id, createdAt and views cannot be set.")
	case errors.Is(err, models.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Status must be active, inactive or draft.")
	default:
		writeError(w, http.StatusBadRequest, "Invalid request body.")
	}
}

// Stats returns the dashboard numbers.
func (a *Admin) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	active := 0
	if a.sessions != nil {
		active = a.sessions.Active()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"portfolio":      a.portfolio.Statistics(ctx),
		"visitors":       a.visitors.Stats(ctx),
		"activeSessions": active,
	})
}

// --- Site content entries ---

// ContentList returns entries, optionally of one ?type=.
func (a *Admin) ContentList(w http.ResponseWriter, r *http.Request) {
	t := models.EntryType(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown content type.")
		return
	}
	writeJSON(w, http.StatusOK, a.entries.List(r.Context(), t))
}

// ContentGet returns one entry.
func (a *Admin) ContentGet(w http.ResponseWriter, r *http.Request) {
	e := a.entries.Get(r.Context(), chi.URLParam(r, "id"))
	if e == nil {
		writeError(w, http.StatusNotFound, "Content entry not found.")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ContentCreate stores a new entry.
func (a *Admin) ContentCreate(w http.ResponseWriter, r *http.Request) {
	var in models.ContentEntry
	if err := decodeEntry(w, r, &in); err != nil {
		return
	}

	e, err := a.entries.Create(r.Context(), in)
	if err != nil {
		writeEntryError(w, err)
		return
	}
	a.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, e)
}

// ContentUpdate replaces an entry's title and payload.
func (a *Admin) ContentUpdate(w http.ResponseWriter, r *http.Request) {
	var in models.ContentEntry
	if err := decodeEntry(w, r, &in); err != nil {
		return
	}

	e, err := a.entries.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeEntryError(w, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "Content entry not found.")
		return
	}
	a.invalidate(r.Context())
	writeJSON(w, http.StatusOK, e)
}

// ContentDelete removes an entry.
func (a *Admin) ContentDelete(w http.ResponseWriter, r *http.Request) {
	removed, err := a.entries.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("delete content entry failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete content.")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Content entry not found.")
		return
	}
	a.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// decodeEntry reads an entry body, writing the error response on failure.
func decodeEntry(w http.ResponseWriter, r *http.Request, dst *models.ContentEntry) error {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return err
	}
	return nil
}

func writeEntryError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrInvalidEntry) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("save content entry failed", "error", err)
	writeError(w, http.StatusInternalServerError, "Failed to save content.")
}

// --- Visitors ---

// Visitors returns the rolling visitor log, newest first. ?limit= caps
// the number of records.
func (a *Admin) Visitors(w http.ResponseWriter, r *http.Request) {
	records := a.visitors.List(r.Context())

	limit := len(records)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer.")
			return
		}
		limit = min(n, len(records))
	}

	result := make([]models.VisitorRecord, 0, limit)
	for i := len(records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, records[i])
	}
	writeJSON(w, http.StatusOK, result)
}

// VisitorStats returns the aggregates of the visitor log.
func (a *Admin) VisitorStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.visitors.Stats(r.Context()))
}
