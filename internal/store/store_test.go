// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides shared fakes for the store tests. Every store runs
// on kv.Memory; failingBackend simulates an unavailable persistence area.
package store

import (
	"context"
	"errors"
	"sync"

	"studiosite/internal/kv"
)

var errBackendDown = errors.New("backend down")

// failingBackend wraps a real backend and fails reads and/or writes on demand.
type failingBackend struct {
	kv.Backend

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	setCalls int
}

func newFailingBackend() *failingBackend {
	return &failingBackend{Backend: kv.NewMemory()}
}

func (f *failingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, false, errBackendDown
	}
	return f.Backend.Get(ctx, key)
}

func (f *failingBackend) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.setCalls++
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Backend.Set(ctx, key, value)
}

func (f *failingBackend) setFailures(get, set bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = get
	f.failSet = set
}
