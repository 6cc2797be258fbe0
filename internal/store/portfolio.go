// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiosite/internal/kv"
	"studiosite/internal/models"
	"studiosite/internal/slug"
)

// PortfolioKey is the kv key holding the portfolio collection.
const PortfolioKey = "portfolio_items"

// PortfolioStore handles CRUD and derived queries over the portfolio
// collection. Mutations are serialised within the process; across
// processes sharing a backend the last writer wins.
type PortfolioStore struct {
	mu    sync.Mutex
	items collection[models.PortfolioItem]
	now   func() time.Time
	newID func() string
}

// NewPortfolioStore creates a PortfolioStore on the given backend.
func NewPortfolioStore(backend kv.Backend) *PortfolioStore {
	return &PortfolioStore{
		items: collection[models.PortfolioItem]{backend: backend, key: PortfolioKey},
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// List returns the full collection in insertion order.
func (s *PortfolioStore) List(ctx context.Context) []models.PortfolioItem {
	return s.items.load(ctx)
}

// GetByID returns the item with the given id, or nil if there is none.
func (s *PortfolioStore) GetByID(ctx context.Context, id string) *models.PortfolioItem {
	for _, item := range s.items.load(ctx) {
		if item.ID == id {
			return &item
		}
	}
	return nil
}

// GetByCategory returns items whose category matches, ignoring case and
// accepting the category's slug ("Web Design" matches "web-design").
func (s *PortfolioStore) GetByCategory(ctx context.Context, category string) []models.PortfolioItem {
	want := slug.Generate(category)
	result := []models.PortfolioItem{}
	for _, item := range s.items.load(ctx) {
		if strings.EqualFold(item.Category, category) || (want != "" && slug.Generate(item.Category) == want) {
			result = append(result, item)
		}
	}
	return result
}

// Search returns items whose title, description or category contains query,
// case-insensitively.
func (s *PortfolioStore) Search(ctx context.Context, query string) []models.PortfolioItem {
	q := strings.ToLower(query)
	result := []models.PortfolioItem{}
	for _, item := range s.items.load(ctx) {
		if strings.Contains(strings.ToLower(item.Title), q) ||
			strings.Contains(strings.ToLower(item.Description), q) ||
			strings.Contains(strings.ToLower(item.Category), q) {
			result = append(result, item)
		}
	}
	return result
}

// Add appends a new item. The store assigns id, createdAt and views.
func (s *PortfolioStore) Add(ctx context.Context, in models.PortfolioInput) (*models.PortfolioItem, error) {
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, in.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := models.PortfolioItem{
		ID:          s.newID(),
		Title:       in.Title,
		Category:    in.Category,
		Image:       in.Image,
		Description: in.Description,
		Status:      in.Status,
		CreatedAt:   s.now().UTC(),
		Views:       0,
	}

	items := s.items.load(ctx)
	items = append(items, item)
	s.items.saveBestEffort(ctx, items)

	return &item, nil
}

// Update merges patch over the item with the given id. Returns nil, nil if
// the id is unknown.
func (s *PortfolioStore) Update(ctx context.Context, id string, patch models.PortfolioPatch) (*models.PortfolioItem, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, *patch.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items.load(ctx)
	for i := range items {
		if items[i].ID != id {
			continue
		}
		patch.Apply(&items[i])
		s.items.saveBestEffort(ctx, items)
		updated := items[i]
		return &updated, nil
	}
	return nil, nil
}

// Remove deletes the item with the given id and reports whether anything
// was removed.
func (s *PortfolioStore) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items.load(ctx)
	for i := range items {
		if items[i].ID == id {
			items = append(items[:i], items[i+1:]...)
			s.items.saveBestEffort(ctx, items)
			return true
		}
	}
	return false
}

// IncrementViews adds one to the item's view counter and returns the
// updated item, or nil if the id is unknown.
func (s *PortfolioStore) IncrementViews(ctx context.Context, id string) *models.PortfolioItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items.load(ctx)
	for i := range items {
		if items[i].ID == id {
			items[i].Views++
			s.items.saveBestEffort(ctx, items)
			updated := items[i]
			return &updated
		}
	}
	return nil
}

// Statistics summarizes counts per status, total views, and items per category.
func (s *PortfolioStore) Statistics(ctx context.Context) models.PortfolioStats {
	stats := models.PortfolioStats{Categories: map[string]int{}}
	for _, item := range s.items.load(ctx) {
		stats.Total++
		stats.TotalViews += item.Views
		stats.Categories[item.Category]++
		switch item.Status {
		case models.PortfolioStatusActive:
			stats.Active++
		case models.PortfolioStatusInactive:
			stats.Inactive++
		case models.PortfolioStatusDraft:
			stats.Draft++
		}
	}
	return stats
}

// Categories returns the distinct categories with their item counts,
// sorted by name.
func (s *PortfolioStore) Categories(ctx context.Context) []models.CategoryCount {
	counts := s.Statistics(ctx).Categories
	result := make([]models.CategoryCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, models.CategoryCount{Name: name, Slug: slug.Generate(name), Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
