package holders

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/solana/stub"
	"solana-token-catalog/internal/storage/memory"
)

func newTestQueue(t *testing.T) *ratequeue.Queue {
	t.Helper()
	q := ratequeue.New(time.Millisecond, nil)
	t.Cleanup(q.Close)
	return q
}

func TestIndexer_RefreshOne(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.LargestAccounts["M1"] = []solana.TokenAccountBalance{
		{Address: "ta1", UIAmount: 500},
		{Address: "ta2", UIAmount: 100},
		{Address: "ta3", UIAmount: 0}, // emptied account, dropped
	}
	rpc.Owners["ta1"] = "wallet1"
	rpc.Owners["ta2"] = "wallet2"

	tokens := memory.NewTokenStore()
	holderStore := memory.NewHolderStore()
	ctx := context.Background()
	tokens.Upsert(ctx, &domain.Token{Mint: "M1"})

	idx := NewIndexer(rpc, newTestQueue(t), tokens, holderStore, nil)
	if err := idx.RefreshOne(ctx, "M1"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	rows, err := holderStore.ListByMint(ctx, "M1")
	if err != nil {
		t.Fatalf("ListByMint: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(rows))
	}
	if rows[0].Owner != "wallet1" || rows[0].Balance != 500 {
		t.Errorf("top holder = %+v", rows[0])
	}

	token, _ := tokens.GetByMint(ctx, "M1")
	if token.HolderCount != 2 {
		t.Errorf("holder count = %d, want 2", token.HolderCount)
	}
}

func TestIndexer_UnresolvedOwnerFallsBackToAccount(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.LargestAccounts["M1"] = []solana.TokenAccountBalance{
		{Address: "ta1", UIAmount: 10},
	}
	// No owner mapping registered.

	tokens := memory.NewTokenStore()
	holderStore := memory.NewHolderStore()
	ctx := context.Background()
	tokens.Upsert(ctx, &domain.Token{Mint: "M1"})

	idx := NewIndexer(rpc, newTestQueue(t), tokens, holderStore, nil)
	if err := idx.RefreshOne(ctx, "M1"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	rows, _ := holderStore.ListByMint(ctx, "M1")
	if len(rows) != 1 || rows[0].Owner != "ta1" {
		t.Errorf("expected token account as owner fallback: %+v", rows)
	}
}

func TestIndexer_RefreshReplacesWholesale(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.LargestAccounts["M1"] = []solana.TokenAccountBalance{
		{Address: "ta1", UIAmount: 500},
	}
	rpc.Owners["ta1"] = "wallet1"

	tokens := memory.NewTokenStore()
	holderStore := memory.NewHolderStore()
	ctx := context.Background()
	tokens.Upsert(ctx, &domain.Token{Mint: "M1"})

	idx := NewIndexer(rpc, newTestQueue(t), tokens, holderStore, nil)
	if err := idx.RefreshOne(ctx, "M1"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	// Second pass sees a different holder set.
	rpc.LargestAccounts["M1"] = []solana.TokenAccountBalance{
		{Address: "ta9", UIAmount: 700},
	}
	rpc.Owners["ta9"] = "wallet9"
	if err := idx.RefreshOne(ctx, "M1"); err != nil {
		t.Fatalf("second RefreshOne: %v", err)
	}

	rows, _ := holderStore.ListByMint(ctx, "M1")
	if len(rows) != 1 || rows[0].Owner != "wallet9" {
		t.Errorf("stale holders survived: %+v", rows)
	}
}

func TestIndexer_SweepRecentSettlesAll(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.LargestAccounts["M1"] = []solana.TokenAccountBalance{{Address: "ta1", UIAmount: 5}}
	rpc.Errs["M2"] = errors.New("rpc down")
	rpc.LargestAccounts["M3"] = []solana.TokenAccountBalance{{Address: "ta3", UIAmount: 7}}

	tokens := memory.NewTokenStore()
	holderStore := memory.NewHolderStore()
	ctx := context.Background()
	for i, mint := range []string{"M1", "M2", "M3"} {
		tokens.Upsert(ctx, &domain.Token{Mint: mint, DiscoveredAt: int64(i + 1)})
	}

	idx := NewIndexer(rpc, newTestQueue(t), tokens, holderStore, nil)
	refreshed, err := idx.SweepRecent(ctx, 10)
	if err != nil {
		t.Fatalf("SweepRecent: %v", err)
	}
	if refreshed != 2 {
		t.Errorf("refreshed = %d, want 2", refreshed)
	}

	for _, mint := range []string{"M1", "M3"} {
		rows, _ := holderStore.ListByMint(ctx, mint)
		if len(rows) != 1 {
			t.Errorf("%s: expected 1 holder, got %d", mint, len(rows))
		}
	}
}
