// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"studiosite/internal/models"
)

func TestPublicPortfolioListsActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	active := env.addItem(t, "Logo A", "Logo", models.PortfolioStatusActive)
	env.addItem(t, "Logo B", "Logo", models.PortfolioStatusDraft)
	env.addItem(t, "Site C", "Web Design", models.PortfolioStatusInactive)

	pub := NewPublic(env.portfolio, env.entries, nil)
	rr := serve(pub.Portfolio, jsonRequest(http.MethodGet, "/api/portfolio", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	items := decodeBody[[]portfolioView](t, rr)
	if len(items) != 1 || items[0].ID != active.ID {
		t.Fatalf("items = %+v, want only the active one", items)
	}
	if !strings.Contains(items[0].DescriptionHTML, "<strong>Logo A</strong>") {
		t.Errorf("descriptionHtml = %q", items[0].DescriptionHTML)
	}
}

func TestPublicPortfolioFilters(t *testing.T) {
	env := newTestEnv(t)
	env.addItem(t, "Logo A", "Logo", models.PortfolioStatusActive)
	env.addItem(t, "Poster", "Print", models.PortfolioStatusActive)
	env.addItem(t, "Logo Sheet", "Print", models.PortfolioStatusActive)
	pub := NewPublic(env.portfolio, env.entries, nil)

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"category", "?category=print", []string{"Poster", "Logo Sheet"}},
		{"query", "?q=logo", []string{"Logo A", "Logo Sheet"}},
		{"category and query", "?category=Print&q=logo", []string{"Logo Sheet"}},
		{"no match", "?q=nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(pub.Portfolio, jsonRequest(http.MethodGet, "/api/portfolio"+tt.query, ""))
			items := decodeBody[[]portfolioView](t, rr)
			if len(items) != len(tt.titles) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.titles))
			}
			for i, item := range items {
				if item.Title != tt.titles[i] {
					t.Errorf("item %d = %q, want %q", i, item.Title, tt.titles[i])
				}
			}
		})
	}
}

func TestPublicCategories(t *testing.T) {
	env := newTestEnv(t)
	env.addItem(t, "A", "Logo", models.PortfolioStatusActive)
	env.addItem(t, "B", "Logo", models.PortfolioStatusActive)
	env.addItem(t, "C", "Print", models.PortfolioStatusDraft)
	pub := NewPublic(env.portfolio, env.entries, nil)

	rr := serve(pub.Categories, jsonRequest(http.MethodGet, "/api/portfolio/categories", ""))
	cats := decodeBody[[]models.CategoryCount](t, rr)
	if len(cats) != 1 {
		t.Fatalf("categories = %+v, want only Logo", cats)
	}
	if cats[0].Name != "Logo" || cats[0].Count != 2 || cats[0].Slug != "logo" {
		t.Errorf("category = %+v", cats[0])
	}
}

func TestPublicPortfolioItem(t *testing.T) {
	env := newTestEnv(t)
	active := env.addItem(t, "Logo A", "Logo", models.PortfolioStatusActive)
	draft := env.addItem(t, "Logo B", "Logo", models.PortfolioStatusDraft)
	pub := NewPublic(env.portfolio, env.entries, nil)

	rr := serve(pub.PortfolioItem, jsonRequest(http.MethodGet, "/", ""), "id", active.ID)
	if rr.Code != http.StatusOK {
		t.Errorf("active item status = %d", rr.Code)
	}
	for _, id := range []string{draft.ID, "missing"} {
		rr := serve(pub.PortfolioItem, jsonRequest(http.MethodGet, "/", ""), "id", id)
		if rr.Code != http.StatusNotFound {
			t.Errorf("id %s status = %d, want 404", id, rr.Code)
		}
	}
}

func TestPublicRecordView(t *testing.T) {
	env := newTestEnv(t)
	item := env.addItem(t, "Logo A", "Logo", models.PortfolioStatusActive)
	draft := env.addItem(t, "Logo B", "Logo", models.PortfolioStatusDraft)
	pub := NewPublic(env.portfolio, env.entries, nil)

	for want := 1; want <= 2; want++ {
		rr := serve(pub.RecordView, jsonRequest(http.MethodPost, "/", ""), "id", item.ID)
		if got := decodeBody[map[string]int](t, rr)["views"]; got != want {
			t.Errorf("views = %d, want %d", got, want)
		}
	}

	rr := serve(pub.RecordView, jsonRequest(http.MethodPost, "/", ""), "id", draft.ID)
	if rr.Code != http.StatusNotFound {
		t.Errorf("draft view status = %d", rr.Code)
	}
	if got := env.portfolio.GetByID(context.Background(), draft.ID).Views; got != 0 {
		t.Errorf("draft views = %d, want 0", got)
	}
}

func TestPublicContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.entries.Create(ctx, models.ContentEntry{
		Type: models.EntryService, Title: "Branding",
		Service: &models.ServiceContent{Summary: "Identity systems", Body: "# Branding"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.entries.Create(ctx, models.ContentEntry{
		Type: models.EntryContact, Title: "Contact",
		Contact: &models.ContactContent{Email: "hello@studio.test"},
	}); err != nil {
		t.Fatal(err)
	}
	pub := NewPublic(env.portfolio, env.entries, nil)

	rr := serve(pub.Content, jsonRequest(http.MethodGet, "/api/content?type=service", ""))
	entries := decodeBody[[]entryView](t, rr)
	if len(entries) != 1 || entries[0].Title != "Branding" {
		t.Fatalf("entries = %+v", entries)
	}
	if !strings.Contains(entries[0].HTML, "<h1") {
		t.Errorf("html = %q", entries[0].HTML)
	}

	rr = serve(pub.Content, jsonRequest(http.MethodGet, "/api/content", ""))
	if all := decodeBody[[]entryView](t, rr); len(all) != 2 {
		t.Errorf("all entries = %d, want 2", len(all))
	}

	rr = serve(pub.Content, jsonRequest(http.MethodGet, "/api/content?type=blog", ""))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d", rr.Code)
	}
}
