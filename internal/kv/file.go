// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockTimeout   = 3 * time.Second
	lockRetry     = 50 * time.Millisecond
	fileExtension = ".json"
)

// validKey restricts keys to names that are safe as file names.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// File stores each key as <dir>/<key>.json. A sibling .lock file guards
// every read and write, so several processes sharing the directory never
// observe a half-written blob.
type File struct {
	dir string
}

// NewFile creates a file backend rooted at dir, creating the directory if
// it does not exist.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv file mkdir %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

// Get implements Backend.
func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, false, err
	}

	unlock, err := f.lock(ctx, path)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv file read %s: %w", key, err)
	}
	return data, true, nil
}

// Set implements Backend. The blob is written to a temp file and renamed
// into place.
func (f *File) Set(ctx context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	unlock, err := f.lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("kv file temp %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("kv file write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kv file close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kv file rename %s: %w", key, err)
	}
	return nil
}

func (f *File) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("kv file: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+fileExtension), nil
}

func (f *File) lock(ctx context.Context, path string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("kv file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("kv file lock: could not acquire %s", path)
	}
	return func() { _ = fl.Unlock() }, nil
}
