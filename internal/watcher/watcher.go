// Package watcher discovers new SPL token mints from live transaction logs.
package watcher

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"solana-token-catalog/internal/classify"
	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/observability"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/storage"
)

const (
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// Watcher states.
const (
	StateIdle int32 = iota
	StateSubscribed
	StateProcessing
	StateStopped
)

// Watcher subscribes to token program logs, fetches the full transaction for
// each mint creation and records accepted mints in the catalog.
type Watcher struct {
	ws        solana.WSClient
	rpc       solana.RPCClient
	queue     *ratequeue.Queue
	tokens    storage.TokenStore
	publisher events.Publisher
	bus       *events.Bus
	logger    *log.Logger
	programs  []string

	state atomic.Int32
}

// Options configures a Watcher.
type Options struct {
	// Programs to watch for mint creations. Defaults to the SPL token
	// program and token-2022.
	Programs []string
	// Publisher receives token_discovered events. Optional.
	Publisher events.Publisher
	// Bus triggers downstream enrichment. Optional.
	Bus *events.Bus
	// Logger defaults to log.Default.
	Logger *log.Logger
}

// New creates a mint watcher. Transaction fetches go through the shared rate
// queue alongside every other provider call.
func New(ws solana.WSClient, rpc solana.RPCClient, queue *ratequeue.Queue, tokens storage.TokenStore, opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	programs := opts.Programs
	if len(programs) == 0 {
		programs = []string{solana.TokenProgramID, solana.Token2022ProgramID}
	}
	return &Watcher{
		ws:        ws,
		rpc:       rpc,
		queue:     queue,
		tokens:    tokens,
		publisher: opts.Publisher,
		bus:       opts.Bus,
		logger:    logger,
		programs:  programs,
	}
}

// State returns the current watcher state.
func (w *Watcher) State() int32 { return w.state.Load() }

// Run subscribes and processes notifications until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.state.Store(StateStopped)

	// Subscribe per program: some providers only accept one mentions
	// address per subscription.
	var channels []<-chan solana.LogNotification
	for _, program := range w.programs {
		ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{
			Mentions: []string{program},
		})
		if err != nil {
			return fmt.Errorf("subscribe logs %s: %w", program, err)
		}
		channels = append(channels, ch)
		w.logger.Printf("[watcher] subscribed to program %s", program)
	}
	w.state.Store(StateSubscribed)

	merged := make(chan solana.LogNotification, 1000)
	for _, ch := range channels {
		go func(logsCh <-chan solana.LogNotification) {
			for notif := range logsCh {
				select {
				case merged <- notif:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif := <-merged:
			w.state.Store(StateProcessing)
			w.processNotification(ctx, notif)
			w.state.Store(StateSubscribed)
		}
	}
}

// processNotification handles one log notification. Failures drop the
// notification; a mint missed here is picked up by the backfill sweep.
func (w *Watcher) processNotification(ctx context.Context, notif solana.LogNotification) {
	if notif.Err != nil {
		return
	}
	if !hasInitializeMintLog(notif.Logs) {
		return
	}

	tx, err := w.retryGetTransaction(ctx, notif.Signature)
	if err != nil {
		w.logger.Printf("[watcher] fetch tx %s failed after %d retries, dropping: %v", notif.Signature, maxRetries, err)
		return
	}
	if tx == nil {
		w.logger.Printf("[watcher] tx %s not available, dropping", notif.Signature)
		return
	}

	disc := extractDiscovery(tx)
	if disc == nil {
		return
	}

	if outcome := classify.Mint(disc.Mint); !outcome.Accept {
		w.logger.Printf("[watcher] rejecting %s: %s", disc.Mint, outcome.Reason)
		observability.RecordMintRejected(outcome.Reason)
		return
	}

	token := &domain.Token{
		Mint:      disc.Mint,
		Decimals:  disc.Decimals,
		Supply:    disc.Supply,
		Status:    domain.StatusFresh,
		Source:    disc.Source,
		OnCurve:   disc.OnCurve,
		BlockTime: tx.BlockTime * 1000,
	}
	if disc.Curve != "" {
		curve := disc.Curve
		token.BondingCurve = &curve
	}

	created, err := w.tokens.Upsert(ctx, token)
	if err != nil {
		w.logger.Printf("[watcher] upsert %s: %v", disc.Mint, err)
		return
	}
	if !created {
		// Already known; a signature can be delivered more than once.
		return
	}

	w.logger.Printf("[watcher] discovered %s (decimals=%d source=%s curve=%v)", disc.Mint, disc.Decimals, disc.Source, disc.OnCurve)
	observability.RecordTokenDiscovered(disc.Source)

	event := events.Event{
		Type:      events.TypeTokenDiscovered,
		Mint:      disc.Mint,
		Source:    disc.Source,
		Signature: notif.Signature,
		Slot:      notif.Slot,
		Timestamp: time.Now().UnixMilli(),
	}
	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, event); err != nil {
			w.logger.Printf("[watcher] publish discovery %s: %v", disc.Mint, err)
		}
	}
	if w.bus != nil {
		w.bus.Publish(event)
	}
}

// retryGetTransaction fetches a transaction with exponential backoff. The
// node often lags the log notification by a slot or two.
func (w *Watcher) retryGetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var tx *solana.Transaction
		err := w.queue.Do(ctx, func(ctx context.Context) error {
			t, err := w.rpc.GetTransaction(ctx, signature)
			tx = t
			return err
		})
		if err == nil {
			return tx, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := baseRetryDelay * time.Duration(1<<attempt)
		w.logger.Printf("[watcher] retry %d/%d for tx %s after %v: %v", attempt+1, maxRetries, signature, delay, lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
