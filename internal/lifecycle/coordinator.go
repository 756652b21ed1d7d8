// Package lifecycle advances tokens through their status machine based on
// observed market signals. Transitions are monotonic; a concurrent writer
// losing the race is expected and ignored.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/observability"
	"solana-token-catalog/internal/storage"
)

// DefaultScanLimit bounds how many tokens per status bucket one sweep examines.
const DefaultScanLimit = 500

// Coordinator scans the catalog and applies status transitions.
type Coordinator struct {
	tokens    storage.TokenStore
	snapshots storage.SnapshotStore
	publisher events.Publisher
	logger    *log.Logger
	scanLimit int
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Publisher receives status_changed events. Optional.
	Publisher events.Publisher
	// ScanLimit overrides DefaultScanLimit.
	ScanLimit int
	// Logger defaults to log.Default.
	Logger *log.Logger
}

// NewCoordinator creates a lifecycle coordinator.
func NewCoordinator(tokens storage.TokenStore, snapshots storage.SnapshotStore, opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	scanLimit := opts.ScanLimit
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Coordinator{
		tokens:    tokens,
		snapshots: snapshots,
		publisher: opts.Publisher,
		logger:    logger,
		scanLimit: scanLimit,
	}
}

// Sweep examines fresh and curve tokens and advances each one whose market
// signal justifies it. Returns the number of transitions applied.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	moved := 0

	fresh, err := c.tokens.ListByStatus(ctx, domain.StatusFresh, c.scanLimit)
	if err != nil {
		return 0, fmt.Errorf("list fresh tokens: %w", err)
	}
	for _, token := range fresh {
		if ctx.Err() != nil {
			return moved, ctx.Err()
		}
		switch {
		case token.OnCurve:
			// Bonding-curve launch observed at discovery.
			if c.transition(ctx, token.Mint, domain.StatusFresh, domain.StatusCurve) {
				moved++
			}
		case c.hasSnapshot(ctx, token.Mint):
			// Priced on a general venue without ever passing through a
			// curve phase.
			if c.transition(ctx, token.Mint, domain.StatusFresh, domain.StatusActive) {
				moved++
			}
		}
	}

	curve, err := c.tokens.ListByStatus(ctx, domain.StatusCurve, c.scanLimit)
	if err != nil {
		return moved, fmt.Errorf("list curve tokens: %w", err)
	}
	for _, token := range curve {
		if ctx.Err() != nil {
			return moved, ctx.Err()
		}
		if c.hasSnapshot(ctx, token.Mint) {
			if c.transition(ctx, token.Mint, domain.StatusCurve, domain.StatusActive) {
				moved++
			}
		}
	}

	return moved, nil
}

// transition applies a guarded status change. A conflict means another writer
// already advanced the token past from; that is not an error.
func (c *Coordinator) transition(ctx context.Context, mint string, from, to domain.TokenStatus) bool {
	err := c.tokens.SetStatus(ctx, mint, from, to)
	if err != nil {
		if !errors.Is(err, storage.ErrConflict) && !errors.Is(err, storage.ErrNotFound) {
			c.logger.Printf("[lifecycle] %s %s -> %s: %v", mint, from, to, err)
		}
		return false
	}

	c.logger.Printf("[lifecycle] %s %s -> %s", mint, from, to)
	observability.RecordStatusTransition(string(from), string(to))

	if c.publisher != nil {
		err := c.publisher.Publish(ctx, events.Event{
			Type:       events.TypeStatusChanged,
			Mint:       mint,
			FromStatus: string(from),
			ToStatus:   string(to),
			Timestamp:  time.Now().UnixMilli(),
		})
		if err != nil {
			c.logger.Printf("[lifecycle] publish status change %s: %v", mint, err)
		}
	}
	return true
}

func (c *Coordinator) hasSnapshot(ctx context.Context, mint string) bool {
	_, err := c.snapshots.Latest(ctx, mint)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Printf("[lifecycle] latest snapshot %s: %v", mint, err)
		}
		return false
	}
	return true
}
