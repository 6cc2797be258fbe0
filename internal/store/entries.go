// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiosite/internal/kv"
	"studiosite/internal/models"
)

// EntriesKey is the kv key holding the site content entries.
const EntriesKey = "content_entries"

// EntryStore manages the service/about/contact/general copy shown on the
// site's static pages. Unlike the portfolio store, write failures are
// returned so the admin can retry an edit that did not persist.
type EntryStore struct {
	mu      sync.Mutex
	entries collection[models.ContentEntry]
	now     func() time.Time
}

// NewEntryStore creates an EntryStore on the given backend.
func NewEntryStore(backend kv.Backend) *EntryStore {
	return &EntryStore{
		entries: collection[models.ContentEntry]{backend: backend, key: EntriesKey},
		now:     time.Now,
	}
}

// List returns entries of the given type, or all entries if t is empty.
func (s *EntryStore) List(ctx context.Context, t models.EntryType) []models.ContentEntry {
	all := s.entries.load(ctx)
	if t == "" {
		return all
	}
	result := []models.ContentEntry{}
	for _, e := range all {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Get returns the entry with the given id, or nil if there is none.
func (s *EntryStore) Get(ctx context.Context, id string) *models.ContentEntry {
	for _, e := range s.entries.load(ctx) {
		if e.ID == id {
			return &e
		}
	}
	return nil
}

// Create validates and stores a new entry, assigning its id and timestamps.
func (s *EntryStore) Create(ctx context.Context, e models.ContentEntry) (*models.ContentEntry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	entries := append(s.entries.load(ctx), e)
	if err := s.entries.save(ctx, entries); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return &e, nil
}

// Update replaces the entry with the given id. The id, type and creation
// time are preserved. Returns nil, nil if the id is unknown.
func (s *EntryStore) Update(ctx context.Context, id string, e models.ContentEntry) (*models.ContentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entries.load(ctx)
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		if e.Type == "" {
			e.Type = entries[i].Type
		}
		if e.Type != entries[i].Type {
			return nil, fmt.Errorf("%w: type cannot change from %q to %q", models.ErrInvalidEntry, entries[i].Type, e.Type)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		e.ID = id
		e.CreatedAt = entries[i].CreatedAt
		e.UpdatedAt = s.now().UTC()
		entries[i] = e
		if err := s.entries.save(ctx, entries); err != nil {
			return nil, fmt.Errorf("update entry: %w", err)
		}
		return &e, nil
	}
	return nil, nil
}

// Delete removes the entry with the given id and reports whether it existed.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entries.load(ctx)
	for i := range entries {
		if entries[i].ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			if err := s.entries.save(ctx, entries); err != nil {
				return false, fmt.Errorf("delete entry: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}
