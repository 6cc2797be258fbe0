// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"studiosite/internal/database"
)

// exerciseBackend runs the behaviour every Backend must share.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	// Miss.
	v, ok, err := b.Get(ctx, "portfolio")
	if err != nil {
		t.Fatalf("Get on empty backend: %v", err)
	}
	if ok || v != nil {
		t.Fatalf("expected miss, got ok=%v value=%q", ok, v)
	}

	// Set then hit.
	if err := b.Set(ctx, "portfolio", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err = b.Get(ctx, "portfolio")
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if string(v) != `[{"id":"a"}]` {
		t.Errorf("value = %q", v)
	}

	// Overwrite: last writer wins.
	if err := b.Set(ctx, "portfolio", []byte(`[]`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, _, _ = b.Get(ctx, "portfolio")
	if string(v) != `[]` {
		t.Errorf("value after overwrite = %q, want []", v)
	}

	// Keys are independent.
	if err := b.Set(ctx, "visitors", []byte(`[1]`)); err != nil {
		t.Fatalf("Set second key: %v", err)
	}
	v, _, _ = b.Get(ctx, "portfolio")
	if string(v) != `[]` {
		t.Errorf("first key changed to %q", v)
	}
}

func TestMemory(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := []byte("abc")
	m.Set(ctx, "k", in)
	in[0] = 'x'

	out, _, _ := m.Get(ctx, "k")
	if string(out) != "abc" {
		t.Fatalf("stored value mutated through caller slice: %q", out)
	}
	out[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestFile(t *testing.T) {
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	exerciseBackend(t, f)
}

func TestFileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	f, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := f.Set(context.Background(), "portfolio", []byte("[]")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "portfolio.json")); err != nil {
		t.Errorf("expected portfolio.json on disk: %v", err)
	}
}

func TestFileRejectsUnsafeKeys(t *testing.T) {
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	for _, key := range []string{"../escape", "a/b", "", "with space"} {
		if err := f.Set(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("Set(%q) should fail", key)
		}
	}
}

func TestFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.Set(ctx, "visitors", []byte("[]"))
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestValkey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	exerciseBackend(t, NewValkey(client))

	// Keys are namespaced.
	if !mr.Exists("kv:portfolio") {
		t.Error("expected kv:portfolio key in valkey")
	}
}

func TestValkeyUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	b := NewValkey(client)
	if _, _, err := b.Get(context.Background(), "portfolio"); err == nil {
		t.Error("Get should fail when valkey is down")
	}
	if err := b.Set(context.Background(), "portfolio", []byte("[]")); err == nil {
		t.Error("Set should fail when valkey is down")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgres(t *testing.T) {
	dsn := "postgres://" + envOr("POSTGRES_USER", "studiosite") + ":" +
		envOr("POSTGRES_PASSWORD", "changeme") + "@" +
		envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") + "/" +
		envOr("POSTGRES_DB", "studiosite") + "?sslmode=disable"

	db, err := database.Connect(context.Background(), dsn)
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Exec(`DELETE FROM kv_entries WHERE key IN ('portfolio', 'visitors')`)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM kv_entries WHERE key IN ('portfolio', 'visitors')`)
	})

	exerciseBackend(t, NewPostgres(db))
}
