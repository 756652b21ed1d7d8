// Package holders maintains the per-token top holder table from on-chain
// token account balances.
package holders

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/storage"
)

// Indexer refreshes holder balances for catalog tokens. Each refresh replaces
// the stored set wholesale; a token account whose owner cannot be resolved is
// recorded under the token account address itself.
type Indexer struct {
	rpc     solana.RPCClient
	queue   *ratequeue.Queue
	tokens  storage.TokenStore
	holders storage.HolderStore
	logger  *log.Logger
}

// NewIndexer creates a holder indexer. RPC calls funnel through the shared
// rate queue.
func NewIndexer(rpc solana.RPCClient, queue *ratequeue.Queue, tokens storage.TokenStore, holders storage.HolderStore, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.Default()
	}
	return &Indexer{
		rpc:     rpc,
		queue:   queue,
		tokens:  tokens,
		holders: holders,
		logger:  logger,
	}
}

// RefreshOne rebuilds the holder table for a single mint and updates the
// token's denormalized holder count.
func (i *Indexer) RefreshOne(ctx context.Context, mint string) error {
	var balances []solana.TokenAccountBalance
	err := i.queue.Do(ctx, func(ctx context.Context) error {
		b, err := i.rpc.GetTokenLargestAccounts(ctx, mint)
		balances = b
		return err
	})
	if err != nil {
		return fmt.Errorf("largest accounts: %w", err)
	}
	if len(balances) == 0 {
		return nil
	}

	accounts := make([]string, 0, len(balances))
	for _, b := range balances {
		accounts = append(accounts, b.Address)
	}

	var owners map[string]string
	err = i.queue.Do(ctx, func(ctx context.Context) error {
		o, err := i.rpc.GetTokenAccountOwners(ctx, accounts)
		owners = o
		return err
	})
	if err != nil {
		return fmt.Errorf("resolve owners: %w", err)
	}

	now := time.Now().UnixMilli()
	rows := make([]*domain.HolderBalance, 0, len(balances))
	for _, b := range balances {
		if b.UIAmount <= 0 {
			continue
		}
		owner := owners[b.Address]
		if owner == "" {
			owner = b.Address
		}
		rows = append(rows, &domain.HolderBalance{
			Mint:      mint,
			Owner:     owner,
			Balance:   b.UIAmount,
			UpdatedAt: now,
		})
	}

	if err := i.holders.ReplaceAll(ctx, mint, rows); err != nil {
		return fmt.Errorf("replace holders: %w", err)
	}
	if err := i.tokens.SetHolderCount(ctx, mint, len(rows)); err != nil {
		return fmt.Errorf("set holder count: %w", err)
	}
	return nil
}

// SweepRecent refreshes holders for the most recently discovered tokens with
// settle-all semantics. Returns the number of tokens refreshed without error.
func (i *Indexer) SweepRecent(ctx context.Context, limit int) (int, error) {
	tokens, err := i.tokens.ListRecent(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list recent tokens: %w", err)
	}

	refreshed := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if err := i.RefreshOne(ctx, token.Mint); err != nil {
			i.logger.Printf("[holders] refresh %s: %v", token.Mint, err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
