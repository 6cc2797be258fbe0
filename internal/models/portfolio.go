// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PortfolioStatus represents the visibility state of a portfolio item.
type PortfolioStatus string

const (
	PortfolioStatusActive   PortfolioStatus = "active"
	PortfolioStatusInactive PortfolioStatus = "inactive"
	PortfolioStatusDraft    PortfolioStatus = "draft"
)

// Valid reports whether s is one of the known statuses.
func (s PortfolioStatus) Valid() bool {
	switch s {
	case PortfolioStatusActive, PortfolioStatusInactive, PortfolioStatusDraft:
		return true
	}
	return false
}

var (
	// ErrImmutableField is returned when a caller tries to set id, createdAt
	// or views through create or update input.
	ErrImmutableField = errors.New("immutable field supplied")

	// ErrInvalidStatus is returned for a status outside active/inactive/draft.
	ErrInvalidStatus = errors.New("invalid status")
)

// immutablePortfolioFields are assigned by the store and never accepted
// from callers.
var immutablePortfolioFields = []string{"id", "createdAt", "views"}

// PortfolioItem is a single entry in the studio's portfolio. ID, CreatedAt
// and Views are owned by the store.
type PortfolioItem struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Category    string          `json:"category" yaml:"category"`
	Image       string          `json:"image" yaml:"image"`
	Description string          `json:"description" yaml:"description"`
	Status      PortfolioStatus `json:"status" yaml:"status"`
	CreatedAt   time.Time       `json:"createdAt" yaml:"createdAt"`
	Views       int             `json:"views" yaml:"views"`
}

// IsActive returns true if the item is publicly listed.
func (p *PortfolioItem) IsActive() bool {
	return p.Status == PortfolioStatusActive
}

// PortfolioInput carries the caller-supplied fields for a new item.
type PortfolioInput struct {
	Title       string          `json:"title" yaml:"title"`
	Category    string          `json:"category" yaml:"category"`
	Image       string          `json:"image" yaml:"image"`
	Description string          `json:"description" yaml:"description"`
	Status      PortfolioStatus `json:"status" yaml:"status"`
}

// PortfolioPatch is a partial update. Nil fields are left untouched.
type PortfolioPatch struct {
	Title       *string          `json:"title,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *PortfolioStatus `json:"status,omitempty"`
}

// Apply merges the patch over item field by field.
func (p PortfolioPatch) Apply(item *PortfolioItem) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
}

// DecodePortfolioInput decodes a create request body, rejecting bodies that
// try to set a store-owned field.
func DecodePortfolioInput(body []byte) (PortfolioInput, error) {
	var in PortfolioInput
	if err := rejectImmutable(body); err != nil {
		return in, err
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return in, fmt.Errorf("decode portfolio input: %w", err)
	}
	return in, nil
}

// DecodePortfolioPatch decodes an update request body with the same
// immutable-field check as DecodePortfolioInput.
func DecodePortfolioPatch(body []byte) (PortfolioPatch, error) {
	var p PortfolioPatch
	if err := rejectImmutable(body); err != nil {
		return p, err
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("decode portfolio patch: %w", err)
	}
	return p, nil
}

func rejectImmutable(body []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		return fmt.Errorf("decode portfolio body: %w", err)
	}
	for _, field := range immutablePortfolioFields {
		if _, ok := raw[field]; ok {
			return fmt.Errorf("%w: %s", ErrImmutableField, field)
		}
	}
	return nil
}

// PortfolioStats summarizes the collection for the admin dashboard.
type PortfolioStats struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	Inactive   int            `json:"inactive"`
	Draft      int            `json:"draft"`
	TotalViews int            `json:"totalViews"`
	Categories map[string]int `json:"categories"`
}

// CategoryCount is one row of the category listing.
type CategoryCount struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}
