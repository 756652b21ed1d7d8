package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

func strp(s string) *string { return &s }

func TestTokenStore_UpsertIdempotent(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	supply := 1_000_000.0
	created, err := store.Upsert(ctx, &domain.Token{
		Mint:     "ABC123",
		Decimals: 6,
		Supply:   &supply,
		Status:   domain.StatusFresh,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should create")
	}

	// Second observation of the same mint must not touch the row.
	created, err = store.Upsert(ctx, &domain.Token{Mint: "ABC123", Decimals: 9})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if created {
		t.Error("second upsert should not create")
	}

	got, err := store.GetByMint(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetByMint: %v", err)
	}
	if got.Decimals != 6 {
		t.Errorf("discovery fields mutated: decimals %d", got.Decimals)
	}
	if got.Status != domain.StatusFresh {
		t.Errorf("expected fresh status, got %s", got.Status)
	}
	if got.Name != nil {
		t.Errorf("fresh token should have empty name, got %q", *got.Name)
	}
}

func TestTokenStore_UpsertInvalid(t *testing.T) {
	store := NewTokenStore()
	if _, err := store.Upsert(context.Background(), &domain.Token{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTokenStore_ApplyUpdateCoalesce(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "M1"})

	if err := store.ApplyUpdate(ctx, "M1", &domain.TokenUpdate{Name: strp("X")}); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	// An existing non-empty value is never overwritten.
	if err := store.ApplyUpdate(ctx, "M1", &domain.TokenUpdate{Name: strp("Y")}); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	// A nil field carries no information.
	if err := store.ApplyUpdate(ctx, "M1", &domain.TokenUpdate{Symbol: strp("S")}); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	got, _ := store.GetByMint(ctx, "M1")
	if got.Name == nil || *got.Name != "X" {
		t.Errorf("coalesce violated: name = %v", got.Name)
	}
	if got.Symbol == nil || *got.Symbol != "S" {
		t.Errorf("unset field should fill: symbol = %v", got.Symbol)
	}
}

func TestTokenStore_ApplyUpdateEmptyStringIgnored(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "M1", Name: strp("Keep")})

	if err := store.ApplyUpdate(ctx, "M1", &domain.TokenUpdate{Name: strp("")}); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	got, _ := store.GetByMint(ctx, "M1")
	if *got.Name != "Keep" {
		t.Errorf("empty update overwrote name: %q", *got.Name)
	}
}

func TestTokenStore_ApplyUpdateUnknownMint(t *testing.T) {
	store := NewTokenStore()
	err := store.ApplyUpdate(context.Background(), "missing", &domain.TokenUpdate{Name: strp("X")})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_SetStatusGuarded(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "M1", Status: domain.StatusFresh})

	if err := store.SetStatus(ctx, "M1", domain.StatusFresh, domain.StatusCurve); err != nil {
		t.Fatalf("SetStatus fresh->curve: %v", err)
	}
	if err := store.SetStatus(ctx, "M1", domain.StatusCurve, domain.StatusActive); err != nil {
		t.Fatalf("SetStatus curve->active: %v", err)
	}

	// A stale transition must not move the status backward.
	err := store.SetStatus(ctx, "M1", domain.StatusCurve, domain.StatusFresh)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	got, _ := store.GetByMint(ctx, "M1")
	if got.Status != domain.StatusActive {
		t.Errorf("status regressed to %s", got.Status)
	}
}

func TestTokenStore_ListMissingCoreMetadata(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "bare", DiscoveredAt: 1})
	store.Upsert(ctx, &domain.Token{
		Mint: "full", DiscoveredAt: 2,
		Name: strp("N"), Symbol: strp("S"), MetadataURI: strp("u"), ImageURL: strp("i"),
	})

	missing, err := store.ListMissingCoreMetadata(ctx, 10)
	if err != nil {
		t.Fatalf("ListMissingCoreMetadata: %v", err)
	}
	if len(missing) != 1 || missing[0].Mint != "bare" {
		t.Errorf("unexpected result: %+v", missing)
	}
}

func TestTokenStore_ListMissingSocials(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "nouri"})
	store.Upsert(ctx, &domain.Token{Mint: "withuri", MetadataURI: strp("ipfs://x")})
	store.Upsert(ctx, &domain.Token{Mint: "social", MetadataURI: strp("ipfs://y"), Twitter: strp("t")})

	missing, err := store.ListMissingSocials(ctx, 10)
	if err != nil {
		t.Fatalf("ListMissingSocials: %v", err)
	}
	if len(missing) != 1 || missing[0].Mint != "withuri" {
		t.Errorf("unexpected result: %+v", missing)
	}
}

func TestTokenStore_ListRecentOrderAndLimit(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "old", DiscoveredAt: 100})
	store.Upsert(ctx, &domain.Token{Mint: "mid", DiscoveredAt: 200})
	store.Upsert(ctx, &domain.Token{Mint: "new", DiscoveredAt: 300})

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(recent))
	}
	if recent[0].Mint != "new" || recent[1].Mint != "mid" {
		t.Errorf("wrong order: %s, %s", recent[0].Mint, recent[1].Mint)
	}
}

func TestTokenStore_Delete(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "M1"})

	if err := store.Delete(ctx, "M1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByMint(ctx, "M1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "M1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("double delete should be ErrNotFound, got %v", err)
	}
}

func TestTokenStore_CopyOnRead(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Upsert(ctx, &domain.Token{Mint: "M1", Name: strp("A")})

	got, _ := store.GetByMint(ctx, "M1")
	got.Decimals = 99

	again, _ := store.GetByMint(ctx, "M1")
	if again.Decimals == 99 {
		t.Error("caller mutation leaked into the store")
	}
}
