package storage

import (
	"context"

	"solana-token-catalog/internal/domain"
)

// TokenStore provides access to the token catalog.
//
// Concurrent writers are safe: Upsert is idempotent per mint and ApplyUpdate
// follows coalesce-on-write semantics (a new value only replaces an existing
// field if the existing field is empty), so per-field writes are last-writer-
// wins without cross-token locking.
type TokenStore interface {
	// Upsert inserts the token if its mint is not yet known. An existing row
	// is left untouched (discovery fields are immutable). Returns true if a
	// new row was created.
	Upsert(ctx context.Context, t *domain.Token) (bool, error)

	// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Token, error)

	// ApplyUpdate merges enrichment results into an existing row using
	// coalesce-on-write: nil update fields and updates against non-empty
	// columns are ignored. Returns ErrNotFound if the mint is unknown.
	ApplyUpdate(ctx context.Context, mint string, u *domain.TokenUpdate) error

	// SetStatus transitions a token from one lifecycle status to another.
	// Returns ErrConflict when the current status does not match from,
	// which keeps transitions monotonic under concurrent sweeps.
	SetStatus(ctx context.Context, mint string, from, to domain.TokenStatus) error

	// SetHolderCount refreshes the denormalized holder count.
	SetHolderCount(ctx context.Context, mint string, count int) error

	// ListByStatus retrieves up to limit tokens with the given status,
	// most recently discovered first.
	ListByStatus(ctx context.Context, status domain.TokenStatus, limit int) ([]*domain.Token, error)

	// ListMissingCoreMetadata retrieves up to limit tokens missing any of
	// name/symbol/uri/image, for the primary enrichment pass.
	ListMissingCoreMetadata(ctx context.Context, limit int) ([]*domain.Token, error)

	// ListMissingSocials retrieves up to limit tokens that have a metadata
	// URI but no social links, for the secondary enrichment pass.
	ListMissingSocials(ctx context.Context, limit int) ([]*domain.Token, error)

	// ListRecent retrieves up to limit tokens ordered by discovery time
	// descending, for the market-data sweep.
	ListRecent(ctx context.Context, limit int) ([]*domain.Token, error)

	// Delete removes a token outright. Reserved for cleanup of known-invalid
	// categories (deny-listed after enrichment).
	Delete(ctx context.Context, mint string) error
}

// SnapshotStore provides access to the append-only market snapshot series.
type SnapshotStore interface {
	// Insert appends a new snapshot. Snapshots are never mutated.
	Insert(ctx context.Context, s *domain.MarketSnapshot) error

	// Latest retrieves the snapshot with the maximum capture timestamp for
	// a mint. Returns ErrNotFound when no snapshot exists.
	Latest(ctx context.Context, mint string) (*domain.MarketSnapshot, error)

	// ListByMint retrieves snapshots for a mint within [from, to] (inclusive,
	// ms), ordered by capture time ASC.
	ListByMint(ctx context.Context, mint string, from, to int64) ([]*domain.MarketSnapshot, error)

	// Prune deletes snapshots captured before the cutoff (ms) and returns
	// the number of rows removed. Retention pruning is the only deletion
	// path for snapshots.
	Prune(ctx context.Context, before int64) (int64, error)
}

// HolderStore provides access to per-mint holder balances.
type HolderStore interface {
	// ReplaceAll atomically replaces every holder row for a mint with the
	// given set. Upstream balance snapshots are point-in-time, so wholesale
	// replacement is the only consistent write.
	ReplaceAll(ctx context.Context, mint string, holders []*domain.HolderBalance) error

	// ListByMint retrieves holder rows for a mint ordered by balance DESC.
	ListByMint(ctx context.Context, mint string) ([]*domain.HolderBalance, error)
}

// SnapshotHistorySink receives snapshot batches for long-term analytical
// storage. Implementations are optional; a nil sink disables history.
type SnapshotHistorySink interface {
	// InsertBatch appends a batch of snapshots to the history store.
	InsertBatch(ctx context.Context, snapshots []*domain.MarketSnapshot) error
}
