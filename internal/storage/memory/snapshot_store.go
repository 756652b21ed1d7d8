package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.MarketSnapshot // keyed by mint, append order
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]*domain.MarketSnapshot),
	}
}

// Insert appends a snapshot. Snapshots are never mutated afterwards.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil || snap.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.data[snap.Mint] = append(s.data[snap.Mint], &snapCopy)
	return nil
}

// Latest retrieves the snapshot with the maximum capture timestamp.
func (s *SnapshotStore) Latest(_ context.Context, mint string) (*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.data[mint]
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := snaps[0]
	for _, snap := range snaps[1:] {
		if snap.CapturedAt >= latest.CapturedAt {
			latest = snap
		}
	}

	latestCopy := *latest
	return &latestCopy, nil
}

// ListByMint retrieves snapshots within [from, to] inclusive, ordered by
// capture time ASC.
func (s *SnapshotStore) ListByMint(_ context.Context, mint string, from, to int64) ([]*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MarketSnapshot
	for _, snap := range s.data[mint] {
		if snap.CapturedAt >= from && snap.CapturedAt <= to {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt < result[j].CapturedAt
	})

	return result, nil
}

// Prune deletes snapshots captured before the cutoff and returns the number
// removed.
func (s *SnapshotStore) Prune(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for mint, snaps := range s.data {
		kept := snaps[:0]
		for _, snap := range snaps {
			if snap.CapturedAt < before {
				removed++
				continue
			}
			kept = append(kept, snap)
		}
		if len(kept) == 0 {
			delete(s.data, mint)
			continue
		}
		s.data[mint] = kept
	}

	return removed, nil
}
