package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.HolderBalance // keyed by mint
}

var _ storage.HolderStore = (*HolderStore)(nil)

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[string][]*domain.HolderBalance),
	}
}

// ReplaceAll replaces every holder row for a mint wholesale.
func (s *HolderStore) ReplaceAll(_ context.Context, mint string, holders []*domain.HolderBalance) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(holders) == 0 {
		delete(s.data, mint)
		return nil
	}

	copies := make([]*domain.HolderBalance, len(holders))
	for i, h := range holders {
		holderCopy := *h
		copies[i] = &holderCopy
	}
	s.data[mint] = copies
	return nil
}

// ListByMint retrieves holder rows ordered by balance DESC.
func (s *HolderStore) ListByMint(_ context.Context, mint string) ([]*domain.HolderBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holders := s.data[mint]
	result := make([]*domain.HolderBalance, len(holders))
	for i, h := range holders {
		holderCopy := *h
		result[i] = &holderCopy
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Balance > result[j].Balance
	})

	return result, nil
}
