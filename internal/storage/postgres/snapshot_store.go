package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a new snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil || snap.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO market_snapshots (
			mint, price, market_cap, volume_24h, liquidity, provider, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.Mint,
		snap.Price,
		snap.MarketCap,
		snap.Volume24h,
		snap.Liquidity,
		snap.Provider,
		snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest retrieves the most recent snapshot for a mint.
func (s *SnapshotStore) Latest(ctx context.Context, mint string) (*domain.MarketSnapshot, error) {
	query := `
		SELECT mint, price, market_cap, volume_24h, liquidity, provider, captured_at
		FROM market_snapshots
		WHERE mint = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// ListByMint retrieves snapshots within [from, to] inclusive, ordered by
// capture time ASC.
func (s *SnapshotStore) ListByMint(ctx context.Context, mint string, from, to int64) ([]*domain.MarketSnapshot, error) {
	query := `
		SELECT mint, price, market_cap, volume_24h, liquidity, provider, captured_at
		FROM market_snapshots
		WHERE mint = $1 AND captured_at >= $2 AND captured_at <= $3
		ORDER BY captured_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint, from, to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.MarketSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}

// Prune deletes snapshots captured before the cutoff.
func (s *SnapshotStore) Prune(ctx context.Context, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM market_snapshots WHERE captured_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanSnapshot scans a single row into a MarketSnapshot.
func scanSnapshot(row pgx.Row) (*domain.MarketSnapshot, error) {
	var snap domain.MarketSnapshot
	err := row.Scan(
		&snap.Mint,
		&snap.Price,
		&snap.MarketCap,
		&snap.Volume24h,
		&snap.Liquidity,
		&snap.Provider,
		&snap.CapturedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
