// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// collection.go holds the JSON-array-under-one-key helper shared by every
// store. Reads never fail: a missing, unreadable or corrupt blob is an empty
// collection. Writes return their error so each store can decide how loudly
// to fail.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"studiosite/internal/kv"
)

// collection is a JSON array of T persisted under a single kv key.
type collection[T any] struct {
	backend kv.Backend
	key     string
}

// load returns the stored items, or an empty slice when the blob is absent
// or cannot be decoded.
func (c collection[T]) load(ctx context.Context) []T {
	raw, ok, err := c.backend.Get(ctx, c.key)
	if err != nil {
		slog.Warn("collection read failed, treating as empty", "key", c.key, "error", err)
		return []T{}
	}
	if !ok || len(raw) == 0 {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("collection is corrupt, treating as empty", "key", c.key, "error", err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// save replaces the stored blob with items.
func (c collection[T]) save(ctx context.Context, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.key, err)
	}
	if err := c.backend.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("persist %s: %w", c.key, err)
	}
	return nil
}

// saveBestEffort persists items and logs, rather than returns, a failure.
func (c collection[T]) saveBestEffort(ctx context.Context, items []T) {
	if err := c.save(ctx, items); err != nil {
		slog.Warn("collection write failed", "key", c.key, "error", err)
	}
}
