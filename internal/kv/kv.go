// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package kv is the persistence primitive under every collection the site
// keeps: one string key maps to one serialized blob. Stores read the whole
// blob, modify it, and write it back, so concurrent writers across processes
// are last-writer-wins. Backends do not merge.
package kv

import "context"

// Backend is a minimal key-value persistence area.
type Backend interface {
	// Get returns the blob stored under key. ok is false when the key has
	// never been written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set replaces the blob stored under key.
	Set(ctx context.Context, key string, value []byte) error
}
