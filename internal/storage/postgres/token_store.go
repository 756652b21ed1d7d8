package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	mint, name, symbol, decimals, supply, status, source, bonding_curve,
	on_curve, metadata_uri, image_url, website, twitter, telegram,
	holder_count, block_time, discovered_at, updated_at
`

// Upsert inserts the token if its mint is unknown. An existing row is left
// untouched. Returns true when a new row was created.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) (bool, error) {
	if t == nil || t.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	status := t.Status
	if status == "" {
		status = domain.StatusFresh
	}
	now := time.Now().UnixMilli()
	discoveredAt := t.DiscoveredAt
	if discoveredAt == 0 {
		discoveredAt = now
	}

	query := `
		INSERT INTO tokens (
			mint, name, symbol, decimals, supply, status, source, bonding_curve,
			on_curve, metadata_uri, image_url, website, twitter, telegram,
			holder_count, block_time, discovered_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (mint) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		t.Mint,
		t.Name,
		t.Symbol,
		t.Decimals,
		t.Supply,
		string(status),
		t.Source,
		t.BondingCurve,
		t.OnCurve,
		t.MetadataURI,
		t.ImageURL,
		t.Website,
		t.Twitter,
		t.Telegram,
		t.HolderCount,
		t.BlockTime,
		discoveredAt,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("upsert token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return t, nil
}

// ApplyUpdate merges enrichment results with coalesce-on-write semantics:
// an existing non-empty column always wins over the update.
func (s *TokenStore) ApplyUpdate(ctx context.Context, mint string, u *domain.TokenUpdate) error {
	if u == nil || u.Empty() {
		return nil
	}

	query := `
		UPDATE tokens SET
			name          = COALESCE(NULLIF(name, ''), NULLIF($2, '')),
			symbol        = COALESCE(NULLIF(symbol, ''), NULLIF($3, '')),
			metadata_uri  = COALESCE(NULLIF(metadata_uri, ''), NULLIF($4, '')),
			image_url     = COALESCE(NULLIF(image_url, ''), NULLIF($5, '')),
			website       = COALESCE(NULLIF(website, ''), NULLIF($6, '')),
			twitter       = COALESCE(NULLIF(twitter, ''), NULLIF($7, '')),
			telegram      = COALESCE(NULLIF(telegram, ''), NULLIF($8, '')),
			decimals      = CASE WHEN decimals = 0 THEN COALESCE($9, decimals) ELSE decimals END,
			supply        = COALESCE(supply, $10),
			bonding_curve = COALESCE(NULLIF(bonding_curve, ''), NULLIF($11, '')),
			on_curve      = on_curve OR COALESCE($12, FALSE),
			updated_at    = $13
		WHERE mint = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		mint,
		u.Name,
		u.Symbol,
		u.MetadataURI,
		u.ImageURL,
		u.Website,
		u.Twitter,
		u.Telegram,
		u.Decimals,
		u.Supply,
		u.BondingCurve,
		u.OnCurve,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("apply token update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetStatus transitions a token between lifecycle statuses. The from guard
// keeps concurrent sweeps monotonic.
func (s *TokenStore) SetStatus(ctx context.Context, mint string, from, to domain.TokenStatus) error {
	query := `UPDATE tokens SET status = $3, updated_at = $4 WHERE mint = $1 AND status = $2`

	tag, err := s.pool.Exec(ctx, query, mint, string(from), string(to), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set token status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing row from a lost transition race.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tokens WHERE mint = $1)`, mint).Scan(&exists); err != nil {
		return fmt.Errorf("check token existence: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// SetHolderCount refreshes the denormalized holder count.
func (s *TokenStore) SetHolderCount(ctx context.Context, mint string, count int) error {
	query := `UPDATE tokens SET holder_count = $2, updated_at = $3 WHERE mint = $1`

	tag, err := s.pool.Exec(ctx, query, mint, count, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set holder count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByStatus retrieves up to limit tokens with the given status, most
// recently discovered first.
func (s *TokenStore) ListByStatus(ctx context.Context, status domain.TokenStatus, limit int) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE status = $1
		ORDER BY discovered_at DESC, mint ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list tokens by status: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListMissingCoreMetadata retrieves tokens missing any of name, symbol,
// metadata URI or image.
func (s *TokenStore) ListMissingCoreMetadata(ctx context.Context, limit int) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE COALESCE(name, '') = ''
		   OR COALESCE(symbol, '') = ''
		   OR COALESCE(metadata_uri, '') = ''
		   OR COALESCE(image_url, '') = ''
		ORDER BY discovered_at DESC, mint ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tokens missing metadata: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListMissingSocials retrieves tokens that have a metadata URI but no social
// links.
func (s *TokenStore) ListMissingSocials(ctx context.Context, limit int) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE COALESCE(metadata_uri, '') <> ''
		  AND COALESCE(website, '') = ''
		  AND COALESCE(twitter, '') = ''
		  AND COALESCE(telegram, '') = ''
		ORDER BY discovered_at DESC, mint ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tokens missing socials: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListRecent retrieves tokens ordered by discovery time descending.
func (s *TokenStore) ListRecent(ctx context.Context, limit int) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		ORDER BY discovered_at DESC, mint ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// Delete removes a token outright.
func (s *TokenStore) Delete(ctx context.Context, mint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE mint = $1`, mint)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	var status string

	err := row.Scan(
		&t.Mint,
		&t.Name,
		&t.Symbol,
		&t.Decimals,
		&t.Supply,
		&status,
		&t.Source,
		&t.BondingCurve,
		&t.OnCurve,
		&t.MetadataURI,
		&t.ImageURL,
		&t.Website,
		&t.Twitter,
		&t.Telegram,
		&t.HolderCount,
		&t.BlockTime,
		&t.DiscoveredAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TokenStatus(status)
	return &t, nil
}

// scanTokens scans multiple rows into a slice of Token.
func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}
