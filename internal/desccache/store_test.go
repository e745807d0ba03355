package desccache_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"picname/internal/desccache"
)

func openCache(t *testing.T) *desccache.Cache {
	t.Helper()
	cache, err := desccache.Open(filepath.Join(t.TempDir(), "nested", "descriptions.db"), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestStoreAndLookup(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	key := desccache.Key{ContentHash: "abc123", Model: "qwen2.5vl:7b", Prompt: "describe"}

	if _, found, err := cache.Lookup(ctx, key); err != nil || found {
		t.Fatalf("expected miss on empty cache, got found=%v err=%v", found, err)
	}

	if err := cache.Store(ctx, desccache.Entry{
		Key:         key,
		Description: "a red fox in the snow",
		SourceName:  "IMG_0001.jpg",
		Elapsed:     1500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	entry, found, err := cache.Lookup(ctx, key)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if entry.Description != "a red fox in the snow" || entry.SourceName != "IMG_0001.jpg" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Elapsed != 1500*time.Millisecond {
		t.Fatalf("unexpected elapsed: %s", entry.Elapsed)
	}
	if entry.Hits != 1 {
		t.Fatalf("expected first hit to be counted, got %d", entry.Hits)
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be parsed")
	}

	again, _, _ := cache.Lookup(ctx, key)
	if again.Hits != 2 {
		t.Fatalf("expected hit counter to grow, got %d", again.Hits)
	}
}

func TestLookupSeparatesModelAndPrompt(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	base := desccache.Key{ContentHash: "same-bytes", Model: "model-a", Prompt: "p1"}
	if err := cache.Store(ctx, desccache.Entry{Key: base, Description: "sunset"}); err != nil {
		t.Fatal(err)
	}

	for _, key := range []desccache.Key{
		{ContentHash: "same-bytes", Model: "model-b", Prompt: "p1"},
		{ContentHash: "same-bytes", Model: "model-a", Prompt: "p2"},
		{ContentHash: "other-bytes", Model: "model-a", Prompt: "p1"},
	} {
		if _, found, err := cache.Lookup(ctx, key); err != nil || found {
			t.Fatalf("expected miss for %+v, got found=%v err=%v", key, found, err)
		}
	}
}

func TestStoreReplacesDescription(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	key := desccache.Key{ContentHash: "h", Model: "m"}
	for _, text := range []string{"first", "second"} {
		if err := cache.Store(ctx, desccache.Entry{Key: key, Description: text}); err != nil {
			t.Fatal(err)
		}
	}
	entry, _, err := cache.Lookup(ctx, key)
	if err != nil || entry.Description != "second" {
		t.Fatalf("expected replaced description, got %+v (%v)", entry, err)
	}
}

func TestStoreRejectsIncompleteEntries(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	if err := cache.Store(ctx, desccache.Entry{Key: desccache.Key{Model: "m"}, Description: "x"}); err == nil {
		t.Fatal("expected missing hash to be rejected")
	}
	if err := cache.Store(ctx, desccache.Entry{Key: desccache.Key{ContentHash: "h", Model: "m"}, Description: "  "}); err == nil {
		t.Fatal("expected blank description to be rejected")
	}
}

func TestStatsAndClear(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	entries := []desccache.Entry{
		{Key: desccache.Key{ContentHash: "1", Model: "a"}, Description: "one"},
		{Key: desccache.Key{ContentHash: "2", Model: "a"}, Description: "two"},
		{Key: desccache.Key{ContentHash: "3", Model: "b"}, Description: "three"},
	}
	for _, entry := range entries {
		if err := cache.Store(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := cache.Lookup(ctx, entries[0].Key); err != nil {
		t.Fatal(err)
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 3 || stats.Models["a"] != 2 || stats.Models["b"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Hits != 1 {
		t.Fatalf("expected one hit, got %d", stats.Hits)
	}
	if stats.SizeBytes <= 0 {
		t.Fatalf("expected database size, got %d", stats.SizeBytes)
	}
	if stats.Oldest.IsZero() || stats.Newest.Before(stats.Oldest) {
		t.Fatalf("unexpected time range: %s .. %s", stats.Oldest, stats.Newest)
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	stats, err = cache.Stats(ctx)
	if err != nil || stats.Entries != 0 {
		t.Fatalf("expected empty cache, got %+v (%v)", stats, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descriptions.db")
	ctx := context.Background()
	key := desccache.Key{ContentHash: "h", Model: "m"}

	cache, err := desccache.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Store(ctx, desccache.Entry{Key: key, Description: "kept"}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := desccache.Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if entry, found, err := reopened.Lookup(ctx, key); err != nil || !found || entry.Description != "kept" {
		t.Fatalf("expected persisted entry, got %+v found=%v err=%v", entry, found, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descriptions.db")
	cache, err := desccache.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = cache.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := desccache.Open(path, nil); !errors.Is(err, desccache.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := desccache.Open("  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
