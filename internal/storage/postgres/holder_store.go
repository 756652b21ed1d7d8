package postgres

import (
	"context"
	"fmt"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// ReplaceAll replaces every holder row for a mint in one transaction, so
// readers never observe a mixed set.
func (s *HolderStore) ReplaceAll(ctx context.Context, mint string, holders []*domain.HolderBalance) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin holder replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM holder_balances WHERE mint = $1`, mint); err != nil {
		return fmt.Errorf("clear holders: %w", err)
	}

	for _, h := range holders {
		_, err := tx.Exec(ctx,
			`INSERT INTO holder_balances (mint, owner, balance, updated_at) VALUES ($1, $2, $3, $4)`,
			mint, h.Owner, h.Balance, h.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert holder: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit holder replace: %w", err)
	}
	return nil
}

// ListByMint retrieves holder rows ordered by balance DESC.
func (s *HolderStore) ListByMint(ctx context.Context, mint string) ([]*domain.HolderBalance, error) {
	query := `
		SELECT mint, owner, balance, updated_at
		FROM holder_balances
		WHERE mint = $1
		ORDER BY balance DESC, owner ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var holders []*domain.HolderBalance
	for rows.Next() {
		var h domain.HolderBalance
		if err := rows.Scan(&h.Mint, &h.Owner, &h.Balance, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}
