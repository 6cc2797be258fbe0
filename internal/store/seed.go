// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"studiosite/internal/models"
)

// seedItems is the development portfolio shown on a fresh install.
var seedItems = []models.PortfolioInput{
	{
		Title:       "Harbor Coffee Identity",
		Category:    "Branding",
		Image:       "https://images.unsplash.com/photo-1509042239860-f550ce710b93",
		Description: "Logo, packaging and signage for a waterfront roastery.",
		Status:      models.PortfolioStatusActive,
	},
	{
		Title:       "Atlas Outdoor Storefront",
		Category:    "Web Design",
		Image:       "https://images.unsplash.com/photo-1522199755839-a2bacb67c546",
		Description: "E-commerce redesign with a **mobile-first** checkout.",
		Status:      models.PortfolioStatusActive,
	},
	{
		Title:       "Verde Annual Report",
		Category:    "Print",
		Image:       "https://images.unsplash.com/photo-1586281380349-632531db7ed4",
		Description: "Editorial layout for a sustainability nonprofit.",
		Status:      models.PortfolioStatusDraft,
	},
}

// SeedPortfolio populates an empty portfolio with sample items. It is a
// no-op if any item already exists.
func SeedPortfolio(ctx context.Context, s *PortfolioStore) int {
	if len(s.List(ctx)) > 0 {
		slog.Info("portfolio already seeded, skipping")
		return 0
	}

	added := 0
	for _, in := range seedItems {
		if _, err := s.Add(ctx, in); err != nil {
			slog.Warn("seed portfolio item failed", "title", in.Title, "error", err)
			continue
		}
		added++
	}

	slog.Info("portfolio seeded with sample items", "count", added)
	return added
}

// portfolioFile is the YAML document read by ParsePortfolioYAML and
// written by ExportPortfolioYAML.
type portfolioFile struct {
	Items []models.PortfolioInput `yaml:"items"`
}

// ParsePortfolioYAML decodes an import file of the form
//
//	items:
//	  - title: Harbor Coffee Identity
//	    category: Branding
//	    status: active
//	    description: ...
func ParsePortfolioYAML(data []byte) ([]models.PortfolioInput, error) {
	var f portfolioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse portfolio yaml: %w", err)
	}
	for i, in := range f.Items {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("item %d (%q): %w: %q", i+1, in.Title, models.ErrInvalidStatus, in.Status)
		}
	}
	return f.Items, nil
}

// ExportPortfolioYAML encodes the collection in the import format. Store
// owned fields (id, createdAt, views) are dropped, since Add reassigns them.
func ExportPortfolioYAML(items []models.PortfolioItem) ([]byte, error) {
	f := portfolioFile{Items: make([]models.PortfolioInput, 0, len(items))}
	for _, item := range items {
		f.Items = append(f.Items, models.PortfolioInput{
			Title:       item.Title,
			Category:    item.Category,
			Image:       item.Image,
			Description: item.Description,
			Status:      item.Status,
		})
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode portfolio yaml: %w", err)
	}
	return data, nil
}

// ImportPortfolio adds every input as a new item and returns how many were
// added. It stops at the first invalid input.
func ImportPortfolio(ctx context.Context, s *PortfolioStore, items []models.PortfolioInput) (int, error) {
	added := 0
	for _, in := range items {
		if _, err := s.Add(ctx, in); err != nil {
			return added, fmt.Errorf("import %q: %w", in.Title, err)
		}
		added++
	}
	return added, nil
}
