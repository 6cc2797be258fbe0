// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// valkeyKeyPrefix namespaces collection keys so they do not collide with
// sessions or cached responses in the same database.
const valkeyKeyPrefix = "kv:"

// Valkey stores blobs as plain string values without expiry.
type Valkey struct {
	client *redis.Client
}

// NewValkey creates a backend on an already connected client.
func NewValkey(client *redis.Client) *Valkey {
	return &Valkey{client: client}
}

// Get implements Backend.
func (v *Valkey) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := v.client.Get(ctx, valkeyKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv valkey get %s: %w", key, err)
	}
	return val, true, nil
}

// Set implements Backend.
func (v *Valkey) Set(ctx context.Context, key string, value []byte) error {
	if err := v.client.Set(ctx, valkeyKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv valkey set %s: %w", key, err)
	}
	return nil
}
