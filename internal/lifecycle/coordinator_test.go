package lifecycle

import (
	"context"
	"sync"
	"testing"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/storage/memory"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func TestCoordinator_FreshCurveTokenMovesToCurve(t *testing.T) {
	tokens := memory.NewTokenStore()
	snapshots := memory.NewSnapshotStore()
	ctx := context.Background()

	tokens.Upsert(ctx, &domain.Token{Mint: "M1", OnCurve: true})

	pub := &capturePublisher{}
	c := NewCoordinator(tokens, snapshots, CoordinatorOptions{Publisher: pub})

	moved, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if moved != 1 {
		t.Errorf("moved = %d, want 1", moved)
	}

	got, _ := tokens.GetByMint(ctx, "M1")
	if got.Status != domain.StatusCurve {
		t.Errorf("status = %s, want curve", got.Status)
	}

	published := pub.published()
	if len(published) != 1 {
		t.Fatalf("expected one event, got %d", len(published))
	}
	e := published[0]
	if e.Type != events.TypeStatusChanged || e.FromStatus != "fresh" || e.ToStatus != "curve" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestCoordinator_FreshTokenWithSnapshotSkipsCurve(t *testing.T) {
	tokens := memory.NewTokenStore()
	snapshots := memory.NewSnapshotStore()
	ctx := context.Background()

	tokens.Upsert(ctx, &domain.Token{Mint: "M1"})
	snapshots.Insert(ctx, &domain.MarketSnapshot{Mint: "M1", Price: 1, CapturedAt: 100})

	c := NewCoordinator(tokens, snapshots, CoordinatorOptions{})

	moved, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if moved != 1 {
		t.Errorf("moved = %d, want 1", moved)
	}

	got, _ := tokens.GetByMint(ctx, "M1")
	if got.Status != domain.StatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
}

func TestCoordinator_CurveTokenGraduatesOnSnapshot(t *testing.T) {
	tokens := memory.NewTokenStore()
	snapshots := memory.NewSnapshotStore()
	ctx := context.Background()

	tokens.Upsert(ctx, &domain.Token{Mint: "M1", Status: domain.StatusCurve, OnCurve: true})
	snapshots.Insert(ctx, &domain.MarketSnapshot{Mint: "M1", Price: 1, CapturedAt: 100})

	c := NewCoordinator(tokens, snapshots, CoordinatorOptions{})

	moved, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if moved != 1 {
		t.Errorf("moved = %d, want 1", moved)
	}

	got, _ := tokens.GetByMint(ctx, "M1")
	if got.Status != domain.StatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
}

func TestCoordinator_NoSignalNoTransition(t *testing.T) {
	tokens := memory.NewTokenStore()
	snapshots := memory.NewSnapshotStore()
	ctx := context.Background()

	tokens.Upsert(ctx, &domain.Token{Mint: "M1"})
	tokens.Upsert(ctx, &domain.Token{Mint: "M2", Status: domain.StatusCurve})

	c := NewCoordinator(tokens, snapshots, CoordinatorOptions{})

	moved, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if moved != 0 {
		t.Errorf("moved = %d, want 0", moved)
	}

	m1, _ := tokens.GetByMint(ctx, "M1")
	m2, _ := tokens.GetByMint(ctx, "M2")
	if m1.Status != domain.StatusFresh || m2.Status != domain.StatusCurve {
		t.Errorf("statuses changed without signal: %s, %s", m1.Status, m2.Status)
	}
}

func TestCoordinator_SweepIsIdempotent(t *testing.T) {
	tokens := memory.NewTokenStore()
	snapshots := memory.NewSnapshotStore()
	ctx := context.Background()

	tokens.Upsert(ctx, &domain.Token{Mint: "M1", OnCurve: true})

	c := NewCoordinator(tokens, snapshots, CoordinatorOptions{})

	if _, err := c.Sweep(ctx); err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	moved, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if moved != 0 {
		t.Errorf("second sweep moved %d, want 0", moved)
	}

	got, _ := tokens.GetByMint(ctx, "M1")
	if got.Status != domain.StatusCurve {
		t.Errorf("status = %s, want curve", got.Status)
	}
}
