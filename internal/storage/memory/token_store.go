// Package memory provides in-memory store implementations for tests and the
// --use-memory mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by mint
}

var _ storage.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Upsert inserts the token if its mint is unknown. Existing rows are left
// untouched. Returns true when a row was created.
func (s *TokenStore) Upsert(_ context.Context, t *domain.Token) (bool, error) {
	if t == nil || t.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; exists {
		return false, nil
	}

	// Store a copy to prevent external mutation
	tokenCopy := *t
	if tokenCopy.Status == "" {
		tokenCopy.Status = domain.StatusFresh
	}
	now := time.Now().UnixMilli()
	if tokenCopy.DiscoveredAt == 0 {
		tokenCopy.DiscoveredAt = now
	}
	tokenCopy.UpdatedAt = now
	s.data[t.Mint] = &tokenCopy
	return true, nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// ApplyUpdate merges enrichment results using coalesce-on-write: a value
// only lands when the existing field is empty.
func (s *TokenStore) ApplyUpdate(_ context.Context, mint string, u *domain.TokenUpdate) error {
	if u == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	coalesce(&t.Name, u.Name)
	coalesce(&t.Symbol, u.Symbol)
	coalesce(&t.MetadataURI, u.MetadataURI)
	coalesce(&t.ImageURL, u.ImageURL)
	coalesce(&t.Website, u.Website)
	coalesce(&t.Twitter, u.Twitter)
	coalesce(&t.Telegram, u.Telegram)
	coalesce(&t.BondingCurve, u.BondingCurve)
	if u.Decimals != nil && t.Decimals == 0 {
		t.Decimals = *u.Decimals
	}
	if u.Supply != nil && t.Supply == nil {
		supply := *u.Supply
		t.Supply = &supply
	}
	if u.OnCurve != nil && !t.OnCurve {
		t.OnCurve = *u.OnCurve
	}
	t.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// SetStatus transitions a token between lifecycle statuses. Returns
// ErrConflict when the current status does not match from.
func (s *TokenStore) SetStatus(_ context.Context, mint string, from, to domain.TokenStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	if t.Status != from {
		return storage.ErrConflict
	}

	t.Status = to
	t.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// SetHolderCount refreshes the denormalized holder count.
func (s *TokenStore) SetHolderCount(_ context.Context, mint string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	t.HolderCount = count
	t.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// ListByStatus retrieves up to limit tokens with the given status, most
// recently discovered first.
func (s *TokenStore) ListByStatus(_ context.Context, status domain.TokenStatus, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(limit, func(t *domain.Token) bool {
		return t.Status == status
	}), nil
}

// ListMissingCoreMetadata retrieves tokens missing any core enrichment field.
func (s *TokenStore) ListMissingCoreMetadata(_ context.Context, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(limit, (*domain.Token).NeedsCoreMetadata), nil
}

// ListMissingSocials retrieves tokens with a metadata URI but no socials.
func (s *TokenStore) ListMissingSocials(_ context.Context, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(limit, (*domain.Token).NeedsSocials), nil
}

// ListRecent retrieves tokens by discovery time descending.
func (s *TokenStore) ListRecent(_ context.Context, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(limit, func(*domain.Token) bool { return true }), nil
}

// Delete removes a token outright.
func (s *TokenStore) Delete(_ context.Context, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[mint]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, mint)
	return nil
}

// collect returns copies of matching tokens sorted by discovered_at DESC,
// capped at limit. Callers must hold at least a read lock.
func (s *TokenStore) collect(limit int, match func(*domain.Token) bool) []*domain.Token {
	var result []*domain.Token
	for _, t := range s.data {
		if match(t) {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DiscoveredAt != result[j].DiscoveredAt {
			return result[i].DiscoveredAt > result[j].DiscoveredAt
		}
		return result[i].Mint < result[j].Mint
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func coalesce(dst **string, val *string) {
	if val == nil || *val == "" {
		return
	}
	if *dst != nil && **dst != "" {
		return
	}
	v := *val
	*dst = &v
}
