// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studiosite/internal/cache"
	"studiosite/internal/markdown"
	"studiosite/internal/models"
	"studiosite/internal/store"
)

// Public serves the read-only site API. Only active portfolio items are
// visible here; drafts and inactive items are admin-only.
type Public struct {
	portfolio *store.PortfolioStore
	entries   *store.EntryStore
	cache     *cache.ResponseCache
}

// NewPublic creates a new Public handler group. responseCache may be nil.
func NewPublic(portfolio *store.PortfolioStore, entries *store.EntryStore, responseCache *cache.ResponseCache) *Public {
	return &Public{portfolio: portfolio, entries: entries, cache: responseCache}
}

// portfolioView adds the rendered description to an item.
type portfolioView struct {
	models.PortfolioItem
	DescriptionHTML string `json:"descriptionHtml"`
}

// entryView adds the rendered markdown body to an entry.
type entryView struct {
	models.ContentEntry
	HTML string `json:"html,omitempty"`
}

func newPortfolioView(item models.PortfolioItem) portfolioView {
	return portfolioView{PortfolioItem: item, DescriptionHTML: markdown.Render(item.Description)}
}

// Portfolio lists active items, optionally filtered by ?category= and
// searched by ?q=.
func (p *Public) Portfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var items []models.PortfolioItem
	switch {
	case category != "":
		items = p.portfolio.GetByCategory(ctx, category)
	case query != "":
		items = p.portfolio.Search(ctx, query)
	default:
		items = p.portfolio.List(ctx)
	}

	lowerQuery := strings.ToLower(query)
	views := []portfolioView{}
	for _, item := range items {
		if !item.IsActive() {
			continue
		}
		if category != "" && query != "" && !matchesQuery(item, lowerQuery) {
			continue
		}
		views = append(views, newPortfolioView(item))
	}
	writeJSON(w, http.StatusOK, views)
}

// matchesQuery mirrors the store's search predicate for combined filters.
func matchesQuery(item models.PortfolioItem, q string) bool {
	return strings.Contains(strings.ToLower(item.Title), q) ||
		strings.Contains(strings.ToLower(item.Description), q) ||
		strings.Contains(strings.ToLower(item.Category), q)
}

// Categories lists the categories of active items with their counts.
func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	for _, item := range p.portfolio.List(r.Context()) {
		if item.IsActive() {
			counts[item.Category]++
		}
	}

	result := []models.CategoryCount{}
	for _, c := range p.portfolio.Categories(r.Context()) {
		if n := counts[c.Name]; n > 0 {
			c.Count = n
			result = append(result, c)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// PortfolioItem returns one active item.
func (p *Public) PortfolioItem(w http.ResponseWriter, r *http.Request) {
	item := p.portfolio.GetByID(r.Context(), chi.URLParam(r, "id"))
	if item == nil || !item.IsActive() {
		writeError(w, http.StatusNotFound, "Portfolio item not found.")
		return
	}
	writeJSON(w, http.StatusOK, newPortfolioView(*item))
}

// RecordView increments an item's view counter when its detail opens.
func (p *Public) RecordView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if item := p.portfolio.GetByID(r.Context(), id); item == nil || !item.IsActive() {
		writeError(w, http.StatusNotFound, "Portfolio item not found.")
		return
	}
	item := p.portfolio.IncrementViews(r.Context(), id)
	if item == nil {
		writeError(w, http.StatusNotFound, "Portfolio item not found.")
		return
	}
	// Cached listings and detail bodies carry the view count.
	p.cache.InvalidatePrefix(r.Context(), "/api/portfolio")
	writeJSON(w, http.StatusOK, map[string]int{"views": item.Views})
}

// Content lists site entries with markdown bodies rendered, optionally
// restricted to one ?type=.
func (p *Public) Content(w http.ResponseWriter, r *http.Request) {
	t := models.EntryType(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown content type.")
		return
	}

	views := []entryView{}
	for _, e := range p.entries.List(r.Context(), t) {
		views = append(views, entryView{ContentEntry: e, HTML: markdown.Render(e.Markdown())})
	}
	writeJSON(w, http.StatusOK, views)
}
