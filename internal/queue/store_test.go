package queue

import (
	"context"
	"strings"
	"testing"
	"time"

	"shuttle/internal/controller"
	"shuttle/internal/testsupport"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(testsupport.NewConfig(t), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustID(t *testing.T, raw string) controller.ID {
	t.Helper()
	id, err := controller.ParseID(raw)
	if err != nil {
		t.Fatalf("parse id %q: %v", raw, err)
	}
	return id
}

func TestEnqueueListOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a := mustID(t, strings.Repeat("a", 40))
	b := mustID(t, strings.Repeat("b", 40))
	if err := store.Enqueue(ctx, a); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if err := store.Enqueue(ctx, b); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Hash != a || entries[1].Hash != b {
		t.Fatalf("order = %v, want [a b]", entries)
	}
}

func TestRemoveDeletesAllDuplicates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a := mustID(t, strings.Repeat("a", 40))
	b := mustID(t, strings.Repeat("b", 32))
	for _, id := range []controller.ID{a, b, a} {
		if err := store.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := store.Remove(ctx, a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != b {
		t.Fatalf("entries = %v, want only b", entries)
	}
}

func TestSummary(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 0 || !summary.Oldest.IsZero() {
		t.Fatalf("empty summary = %+v", summary)
	}

	if err := store.Enqueue(ctx, mustID(t, strings.Repeat("c", 40))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	summary, err = store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 1 {
		t.Fatalf("count = %d, want 1", summary.Count)
	}
	if summary.Oldest.IsZero() || time.Since(summary.Oldest) > time.Minute {
		t.Fatalf("oldest = %v, want recent", summary.Oldest)
	}
}

func TestListDropsCorruptEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.execWithRetry(ctx,
		"INSERT INTO relocation_queue (hash, enqueued_at) VALUES (?, ?)",
		"not-a-real-hash", time.Now().Unix()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	good := mustID(t, strings.Repeat("d", 40))
	if err := store.Enqueue(ctx, good); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != good {
		t.Fatalf("entries = %v, want only the valid hash", entries)
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 1 {
		t.Fatalf("corrupt row should have been deleted, count = %d", summary.Count)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, raw := range []string{strings.Repeat("a", 40), strings.Repeat("b", 40)} {
		if err := store.Enqueue(ctx, mustID(t, raw)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %v, want empty", entries)
	}
}
