package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

func TestSnapshotStore_InsertAndLatest(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, s := range []*domain.MarketSnapshot{
		{Mint: "M1", Price: 0.001, CapturedAt: 100},
		{Mint: "M1", Price: 0.003, CapturedAt: 300},
		{Mint: "M1", Price: 0.002, CapturedAt: 200},
	} {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	latest, err := store.Latest(ctx, "M1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.CapturedAt != 300 || latest.Price != 0.003 {
		t.Errorf("latest = %+v, want the capture at 300", latest)
	}
}

func TestSnapshotStore_LatestNotFound(t *testing.T) {
	store := NewSnapshotStore()
	if _, err := store.Latest(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_ListByMintRangeInclusive(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, at := range []int64{100, 200, 300, 400} {
		store.Insert(ctx, &domain.MarketSnapshot{Mint: "M1", Price: 1, CapturedAt: at})
	}

	snaps, err := store.ListByMint(ctx, "M1", 200, 300)
	if err != nil {
		t.Fatalf("ListByMint: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].CapturedAt != 200 || snaps[1].CapturedAt != 300 {
		t.Errorf("wrong range or order: %d, %d", snaps[0].CapturedAt, snaps[1].CapturedAt)
	}
}

func TestSnapshotStore_AppendOnly(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	store.Insert(ctx, &domain.MarketSnapshot{Mint: "M1", Price: 1, CapturedAt: 100})

	// Mutating the returned snapshot must not affect the series.
	latest, _ := store.Latest(ctx, "M1")
	latest.Price = 999

	again, _ := store.Latest(ctx, "M1")
	if again.Price != 1 {
		t.Errorf("stored snapshot mutated: price %f", again.Price)
	}
}

func TestSnapshotStore_Prune(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, at := range []int64{100, 200, 300} {
		store.Insert(ctx, &domain.MarketSnapshot{Mint: "M1", Price: 1, CapturedAt: at})
	}
	store.Insert(ctx, &domain.MarketSnapshot{Mint: "M2", Price: 1, CapturedAt: 50})

	removed, err := store.Prune(ctx, 250)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	snaps, _ := store.ListByMint(ctx, "M1", 0, 1000)
	if len(snaps) != 1 || snaps[0].CapturedAt != 300 {
		t.Errorf("unexpected survivors: %+v", snaps)
	}
	if _, err := store.Latest(ctx, "M2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("fully pruned mint should be ErrNotFound, got %v", err)
	}
}
