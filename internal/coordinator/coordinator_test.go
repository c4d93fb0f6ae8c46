package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/controller"
	"shuttle/internal/lease"
	"shuttle/internal/queue"
	"shuttle/internal/testsupport"
)

type fixture struct {
	cfg     *config.Config
	store   *queue.Store
	coord   *Coordinator
	spawned []controller.ID
	workers int
}

func newFixture(t *testing.T, maxWorkers int) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxWorkers(maxWorkers))
	store, err := queue.Open(cfg, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	leases := lease.NewManager(cfg.LockDir(), nil)
	fx := &fixture{cfg: cfg, store: store}
	fx.coord = New(cfg, store, leases, "", false, nil)
	fx.coord.cache.scan = func() ([]int, error) {
		pids := make([]int, fx.workers)
		for i := range pids {
			pids[i] = 1000 + i
		}
		return pids, nil
	}
	fx.coord.spawn = func(id controller.ID) error {
		fx.spawned = append(fx.spawned, id)
		fx.workers++
		return nil
	}
	return fx
}

func testID(ch string) controller.ID {
	return controller.ID(strings.Repeat(ch, 40))
}

func TestDispatchSpawnsWhenSlotFree(t *testing.T) {
	fx := newFixture(t, 2)

	outcome, err := fx.coord.Dispatch(context.Background(), testID("a"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome != OutcomeSpawned {
		t.Fatalf("outcome = %s, want spawned", outcome)
	}
	if len(fx.spawned) != 1 {
		t.Fatalf("spawned = %v, want one worker", fx.spawned)
	}
}

func TestDispatchQueuesWhenSlotsBusy(t *testing.T) {
	fx := newFixture(t, 1)
	fx.workers = 1

	id := testID("b")
	outcome, err := fx.coord.Dispatch(context.Background(), id)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome != OutcomeQueued {
		t.Fatalf("outcome = %s, want queued", outcome)
	}
	if len(fx.spawned) != 0 {
		t.Fatal("no worker may be spawned while slots are busy")
	}
	entries, err := fx.store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != id {
		t.Fatalf("queue = %v, want the dispatched hash", entries)
	}
}

func TestDispatchCountsFreshlySpawnedWorkers(t *testing.T) {
	fx := newFixture(t, 1)

	first, err := fx.coord.Dispatch(context.Background(), testID("a"))
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if first != OutcomeSpawned {
		t.Fatalf("first outcome = %s, want spawned", first)
	}
	second, err := fx.coord.Dispatch(context.Background(), testID("b"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if second != OutcomeQueued {
		t.Fatal("cache must be invalidated after a spawn so the slot reads busy")
	}
}

func TestDrainQueueRespectsSlots(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	for _, ch := range []string{"a", "b", "c"} {
		if err := fx.store.Enqueue(ctx, testID(ch)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	drained, err := fx.coord.DrainQueue(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if drained != 2 {
		t.Fatalf("drained = %d, want 2", drained)
	}
	if len(fx.spawned) != 2 || fx.spawned[0] != testID("a") || fx.spawned[1] != testID("b") {
		t.Fatalf("spawned = %v, want oldest two", fx.spawned)
	}
	entries, err := fx.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != testID("c") {
		t.Fatalf("queue = %v, want only c left", entries)
	}
}

func TestDrainQueueKeepsEntryOnSpawnFailure(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	id := testID("a")
	if err := fx.store.Enqueue(ctx, id); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	fx.coord.spawn = func(controller.ID) error {
		return errors.New("fork failed")
	}

	if _, err := fx.coord.DrainQueue(ctx); err == nil {
		t.Fatal("expected spawn failure to surface")
	}
	entries, err := fx.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != id {
		t.Fatal("entry must stay queued when its worker never started")
	}
}

func TestWithReclamationLeaseSkipsWhenHeld(t *testing.T) {
	fx := newFixture(t, 1)
	leases := lease.NewManager(fx.cfg.LockDir(), nil)
	held, err := leases.Acquire(context.Background(), "space-reclamation", 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ran, err := fx.coord.WithReclamationLease(ctx, func(context.Context) error {
		t.Error("reclamation must not run while the lease is held elsewhere")
		return nil
	})
	if err != nil {
		t.Fatalf("with lease: %v", err)
	}
	if ran {
		t.Fatal("ran = true, want skipped")
	}
}

func TestWithReclamationLeaseRuns(t *testing.T) {
	fx := newFixture(t, 1)
	ran := false
	ok, err := fx.coord.WithReclamationLease(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("with lease: %v", err)
	}
	if !ok || !ran {
		t.Fatal("reclamation must run when the lease is free")
	}
}
