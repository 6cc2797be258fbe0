// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type valkeyBackend struct {
	client *redis.Client
}

func (b *valkeyBackend) save(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	return b.client.Set(ctx, keyPrefix+id, payload, ttl).Err()
}

func (b *valkeyBackend) load(ctx context.Context, id string) ([]byte, bool, error) {
	payload, err := b.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (b *valkeyBackend) remove(ctx context.Context, id string) error {
	return b.client.Del(ctx, keyPrefix+id).Err()
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// memoryBackend expires entries lazily on load and prunes on save.
type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func (b *memoryBackend) save(_ context.Context, id string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for k, e := range b.entries {
		if !now.Before(e.expires) {
			delete(b.entries, k)
		}
	}
	b.entries[id] = memoryEntry{payload: append([]byte(nil), payload...), expires: now.Add(ttl)}
	return nil
}

func (b *memoryBackend) load(_ context.Context, id string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(e.expires) {
		delete(b.entries, id)
		return nil, false, nil
	}
	return e.payload, true, nil
}

func (b *memoryBackend) remove(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
	return nil
}
