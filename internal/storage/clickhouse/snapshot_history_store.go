package clickhouse

import (
	"context"
	"fmt"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// SnapshotHistoryStore implements storage.SnapshotHistorySink using
// ClickHouse. History rows are append-only and never pruned; the operational
// snapshot store carries the short retention window instead.
type SnapshotHistoryStore struct {
	conn *Conn
}

// NewSnapshotHistoryStore creates a new SnapshotHistoryStore.
func NewSnapshotHistoryStore(conn *Conn) *SnapshotHistoryStore {
	return &SnapshotHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotHistorySink = (*SnapshotHistoryStore)(nil)

// InsertBatch appends a batch of snapshots.
func (s *SnapshotHistoryStore) InsertBatch(ctx context.Context, snapshots []*domain.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO snapshot_history (
			mint, price, market_cap, volume_24h, liquidity, provider, captured_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.Mint, snap.Price, snap.MarketCap,
			snap.Volume24h, snap.Liquidity, snap.Provider,
			uint64(snap.CapturedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListByMint retrieves history rows for a mint within [start, end] (inclusive
// ms), ordered by capture time ASC.
func (s *SnapshotHistoryStore) ListByMint(ctx context.Context, mint string, start, end int64) ([]*domain.MarketSnapshot, error) {
	query := `
		SELECT mint, price, market_cap, volume_24h, liquidity, provider, captured_at
		FROM snapshot_history
		WHERE mint = ? AND captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.MarketSnapshot
	for rows.Next() {
		var snap domain.MarketSnapshot
		var capturedAt uint64

		err := rows.Scan(
			&snap.Mint, &snap.Price, &snap.MarketCap,
			&snap.Volume24h, &snap.Liquidity, &snap.Provider,
			&capturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot history row: %w", err)
		}

		snap.CapturedAt = int64(capturedAt)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot history rows: %w", err)
	}

	return snaps, nil
}
