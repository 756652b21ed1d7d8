package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/observability"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/storage"
)

// Default aggregator tuning.
const (
	DefaultCallTimeout = 10 * time.Second

	// DefaultAlertThreshold is the relative price change versus the previous
	// snapshot that raises a price alert.
	DefaultAlertThreshold = 0.05

	// DefaultSupplyAssumption is used to derive a marketcap when neither the
	// provider nor the catalog knows the supply. Matches the fixed supply of
	// launchpad-minted tokens, which dominate fresh discoveries.
	DefaultSupplyAssumption = 1_000_000_000
)

// Aggregator produces market snapshots by querying providers in fixed
// priority order, stopping at the first strictly positive price. All provider
// calls funnel through the shared rate queue.
type Aggregator struct {
	providers []Provider
	queue     *ratequeue.Queue
	tokens    storage.TokenStore
	snapshots storage.SnapshotStore
	history   storage.SnapshotHistorySink
	cache     *QuoteCache
	publisher events.Publisher
	logger    *log.Logger

	callTimeout    time.Duration
	alertThreshold float64
	defaultSupply  float64
}

// AggregatorOptions configures optional aggregator collaborators.
type AggregatorOptions struct {
	// History receives every snapshot for long-term analytical storage.
	// Optional; nil disables history.
	History storage.SnapshotHistorySink
	// Cache short-circuits the provider chain. Optional.
	Cache *QuoteCache
	// Publisher receives price alerts. Optional; nil disables alerting.
	Publisher events.Publisher
	// AlertThreshold overrides DefaultAlertThreshold. Negative disables
	// alerting even with a publisher set.
	AlertThreshold float64
	// CallTimeout bounds each provider call. Defaults to DefaultCallTimeout.
	CallTimeout time.Duration
	// Logger defaults to log.Default.
	Logger *log.Logger
}

// NewAggregator creates a market data aggregator. Provider order is the
// fallback priority order.
func NewAggregator(providers []Provider, queue *ratequeue.Queue, tokens storage.TokenStore, snapshots storage.SnapshotStore, opts AggregatorOptions) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	alertThreshold := opts.AlertThreshold
	if alertThreshold == 0 {
		alertThreshold = DefaultAlertThreshold
	}

	return &Aggregator{
		providers:      providers,
		queue:          queue,
		tokens:         tokens,
		snapshots:      snapshots,
		history:        opts.History,
		cache:          opts.Cache,
		publisher:      opts.Publisher,
		logger:         logger,
		callTimeout:    callTimeout,
		alertThreshold: alertThreshold,
		defaultSupply:  DefaultSupplyAssumption,
	}
}

// UpdateOne attempts one snapshot for the token. Returns true when a
// snapshot was written. Provider exhaustion is an expected steady state:
// no write, no error.
func (a *Aggregator) UpdateOne(ctx context.Context, token *domain.Token) (bool, error) {
	quote, provider := a.fetchQuote(ctx, token.Mint)
	if quote == nil {
		return false, nil
	}

	marketCap := quote.MarketCap
	if marketCap <= 0 {
		marketCap = quote.Price * a.supplyFor(token, quote)
	}

	// Compare against the previous snapshot before appending the new one.
	prev, err := a.snapshots.Latest(ctx, token.Mint)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("load previous snapshot: %w", err)
	}

	snapshot := &domain.MarketSnapshot{
		Mint:       token.Mint,
		Price:      quote.Price,
		MarketCap:  marketCap,
		Volume24h:  quote.Volume24h,
		Liquidity:  quote.Liquidity,
		Provider:   provider,
		CapturedAt: time.Now().UnixMilli(),
	}

	if err := a.snapshots.Insert(ctx, snapshot); err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	observability.RecordSnapshotWritten()

	if a.history != nil {
		if err := a.history.InsertBatch(ctx, []*domain.MarketSnapshot{snapshot}); err != nil {
			a.logger.Printf("[market] history insert %s: %v", token.Mint, err)
		}
	}

	if quote.Supply > 0 && token.Supply == nil {
		supply := quote.Supply
		if err := a.tokens.ApplyUpdate(ctx, token.Mint, &domain.TokenUpdate{Supply: &supply}); err != nil {
			a.logger.Printf("[market] backfill supply %s: %v", token.Mint, err)
		}
	}
	if quote.Holders > 0 {
		if err := a.tokens.SetHolderCount(ctx, token.Mint, quote.Holders); err != nil {
			a.logger.Printf("[market] set holder count %s: %v", token.Mint, err)
		}
	}

	a.maybeAlert(ctx, token.Mint, prev, snapshot)

	return true, nil
}

// SweepRecent runs UpdateOne over the most recently discovered tokens with
// settle-all semantics. Returns the number of snapshots written.
func (a *Aggregator) SweepRecent(ctx context.Context, limit int) (int, error) {
	tokens, err := a.tokens.ListRecent(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list recent tokens: %w", err)
	}

	written := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		ok, err := a.UpdateOne(ctx, token)
		if err != nil {
			a.logger.Printf("[market] update %s: %v", token.Mint, err)
			continue
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// fetchQuote walks the provider chain in priority order. The first strictly
// positive price wins and later providers are never called. Errors, timeouts
// and zero prices all read as "no data" for that provider.
func (a *Aggregator) fetchQuote(ctx context.Context, mint string) (*Quote, string) {
	if quote, ok := a.cache.Get(ctx, mint); ok && quote.Price > 0 {
		return quote, quote.Provider
	}

	for _, p := range a.providers {
		var quote *Quote
		err := a.queue.Do(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
			defer cancel()

			q, err := p.Fetch(callCtx, mint)
			quote = q
			return err
		})
		if err != nil {
			a.logger.Printf("[market] provider %s %s: %v", p.Name(), mint, err)
			continue
		}
		if quote == nil || quote.Price <= 0 {
			continue
		}

		quote.Provider = p.Name()
		a.cache.Set(ctx, mint, quote)
		return quote, p.Name()
	}

	return nil, ""
}

// maybeAlert raises a price alert when the relative change against the
// previous snapshot exceeds the threshold. Delivery is best-effort.
func (a *Aggregator) maybeAlert(ctx context.Context, mint string, prev, current *domain.MarketSnapshot) {
	if a.publisher == nil || a.alertThreshold <= 0 {
		return
	}
	if prev == nil || prev.Price <= 0 {
		return
	}

	change := (current.Price - prev.Price) / prev.Price
	if math.Abs(change) < a.alertThreshold {
		return
	}

	err := a.publisher.Publish(ctx, events.Event{
		Type:      events.TypePriceAlert,
		Mint:      mint,
		Price:     current.Price,
		PrevPrice: prev.Price,
		ChangePct: change * 100,
		Timestamp: current.CapturedAt,
	})
	if err != nil {
		a.logger.Printf("[market] publish alert %s: %v", mint, err)
	}
}

// supplyFor picks the supply used for marketcap derivation: provider supply,
// then last known catalog supply, then the documented default.
func (a *Aggregator) supplyFor(token *domain.Token, quote *Quote) float64 {
	if quote.Supply > 0 {
		return quote.Supply
	}
	if token.Supply != nil && *token.Supply > 0 {
		return *token.Supply
	}
	return a.defaultSupply
}
