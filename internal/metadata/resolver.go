// Package metadata populates token name, symbol, URI, image and social links
// from on-chain accounts and off-chain documents hosted on public,
// permissionless stores.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"solana-token-catalog/internal/classify"
	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/observability"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/storage"
)

// DefaultParallelism bounds concurrent per-token enrichment within a pass.
const DefaultParallelism = 4

// Resolver enriches catalog tokens with metadata. Every outbound lookup
// (chain RPC, DAS, gateway fetch) rides the shared rate queue, so enrichment
// fan-out never exceeds the global provider rate.
type Resolver struct {
	rpc      solana.RPCClient
	queue    *ratequeue.Queue
	fetcher  *Fetcher
	das      *DASClient
	tokens   storage.TokenStore
	bus      *events.Bus
	logger   *log.Logger
	parallel int
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Parallelism bounds concurrent token enrichment. Defaults to
	// DefaultParallelism.
	Parallelism int
	// Bus receives token_enriched events. Optional.
	Bus *events.Bus
	// Logger for enrichment progress. Defaults to log.Default.
	Logger *log.Logger
}

// NewResolver creates a metadata resolver.
func NewResolver(rpc solana.RPCClient, queue *ratequeue.Queue, fetcher *Fetcher, das *DASClient, tokens storage.TokenStore, opts ResolverOptions) *Resolver {
	parallel := opts.Parallelism
	if parallel <= 0 {
		parallel = DefaultParallelism
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		rpc:      rpc,
		queue:    queue,
		fetcher:  fetcher,
		das:      das,
		tokens:   tokens,
		bus:      opts.Bus,
		logger:   logger,
		parallel: parallel,
	}
}

// PrimaryPass enriches up to limit tokens missing core metadata. One token's
// failure never aborts the batch; the number of successfully enriched tokens
// is returned.
func (r *Resolver) PrimaryPass(ctx context.Context, limit int) (int, error) {
	tokens, err := r.tokens.ListMissingCoreMetadata(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list tokens missing metadata: %w", err)
	}
	return r.enrichBatch(ctx, tokens, r.EnrichOne), nil
}

// SecondaryPass fills social links for up to limit tokens that already have
// a metadata URI.
func (r *Resolver) SecondaryPass(ctx context.Context, limit int) (int, error) {
	tokens, err := r.tokens.ListMissingSocials(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list tokens missing socials: %w", err)
	}
	return r.enrichBatch(ctx, tokens, r.enrichSocials), nil
}

// enrichBatch runs fn over tokens with bounded parallelism and settle-all
// semantics.
func (r *Resolver) enrichBatch(ctx context.Context, tokens []*domain.Token, fn func(context.Context, string) error) int {
	var g errgroup.Group
	g.SetLimit(r.parallel)

	done := make(chan struct{}, len(tokens))
	for _, t := range tokens {
		mint := t.Mint
		g.Go(func() error {
			if err := fn(ctx, mint); err != nil {
				r.logger.Printf("[metadata] enrich %s: %v", mint, err)
				return nil // settle-all: keep processing the batch
			}
			done <- struct{}{}
			return nil
		})
	}
	g.Wait()
	return len(done)
}

// EnrichOne resolves metadata for a single mint and merges it into the
// catalog. A token whose resolved name or symbol hits the deny-list is
// removed instead of saved.
func (r *Resolver) EnrichOne(ctx context.Context, mint string) error {
	token, err := r.tokens.GetByMint(ctx, mint)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	update := &domain.TokenUpdate{}

	// Backfill supply/decimals when discovery could not extract them.
	if token.Supply == nil {
		if mintAcc := r.fetchMintAccount(ctx, mint); mintAcc != nil {
			update.Supply = &mintAcc.Supply
			if token.Decimals == 0 {
				update.Decimals = &mintAcc.Decimals
			}
		}
	}

	onChain := r.fetchOnChain(ctx, mint)
	if onChain != nil {
		setIfPresent(&update.Name, onChain.Name)
		setIfPresent(&update.Symbol, onChain.Symbol)
		setIfPresent(&update.MetadataURI, onChain.URI)
	}

	// Secondary indexer fallback when on-chain parsing yielded nothing
	// usable.
	if onChain == nil || onChain.Name == "" || onChain.URI == "" {
		if asset := r.fetchAsset(ctx, mint); asset != nil {
			setIfPresent(&update.Name, asset.Name)
			setIfPresent(&update.Symbol, asset.Symbol)
			setIfPresent(&update.MetadataURI, asset.JSONURI)
			setIfPresent(&update.ImageURL, asset.ImageURL)
		}
	}

	uri := strPtr(update.MetadataURI)
	if uri == "" {
		uri = strPtr(token.MetadataURI)
	}
	if uri != "" {
		if doc, err := r.resolveDocument(ctx, uri); err != nil {
			r.logger.Printf("[metadata] resolve document %s: %v", mint, err)
		} else if doc != nil {
			setIfPresent(&update.Name, doc.Name)
			setIfPresent(&update.Symbol, doc.Symbol)
			setIfPresent(&update.ImageURL, doc.ImageURL)
			setIfPresent(&update.Website, doc.Website)
			setIfPresent(&update.Twitter, doc.Twitter)
			setIfPresent(&update.Telegram, doc.Telegram)
		}
	}

	name := firstNonEmpty(strPtr(update.Name), strPtr(token.Name))
	symbol := firstNonEmpty(strPtr(update.Symbol), strPtr(token.Symbol))
	if outcome := classify.Metadata(name, symbol); !outcome.Accept {
		r.logger.Printf("[metadata] discarding %s: %s", mint, outcome.Reason)
		observability.RecordTokenDiscarded(outcome.Reason)
		if err := r.tokens.Delete(ctx, mint); err != nil {
			return fmt.Errorf("delete deny-listed token: %w", err)
		}
		return nil
	}

	if update.Empty() {
		return nil
	}

	if err := r.tokens.ApplyUpdate(ctx, mint, update); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	observability.RecordTokenEnriched()

	if r.bus != nil && name != "" {
		r.bus.Publish(events.Event{
			Type:      events.TypeTokenEnriched,
			Mint:      mint,
			Name:      name,
			Symbol:    symbol,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	return nil
}

// enrichSocials resolves only the social links from an existing metadata URI.
func (r *Resolver) enrichSocials(ctx context.Context, mint string) error {
	token, err := r.tokens.GetByMint(ctx, mint)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	uri := strPtr(token.MetadataURI)
	if uri == "" {
		return nil
	}

	doc, err := r.resolveDocument(ctx, uri)
	if err != nil {
		return fmt.Errorf("resolve document: %w", err)
	}
	if doc == nil {
		return nil
	}

	update := &domain.TokenUpdate{}
	setIfPresent(&update.Website, doc.Website)
	setIfPresent(&update.Twitter, doc.Twitter)
	setIfPresent(&update.Telegram, doc.Telegram)
	setIfPresent(&update.ImageURL, doc.ImageURL)
	if update.Empty() {
		return nil
	}

	if err := r.tokens.ApplyUpdate(ctx, mint, update); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

// fetchOnChain derives the metadata PDA and parses its account. Any failure
// is treated as "no on-chain metadata".
func (r *Resolver) fetchOnChain(ctx context.Context, mint string) *OnChainMetadata {
	pda, err := solana.MetadataPDA(mint)
	if err != nil {
		r.logger.Printf("[metadata] derive pda %s: %v", mint, err)
		return nil
	}

	info, err := r.getAccountInfo(ctx, pda)
	if err != nil || info == nil {
		return nil
	}

	meta, err := ParseMetadataAccount(info.Data)
	if err != nil {
		// Malformed account data is permanent; log and move on.
		r.logger.Printf("[metadata] parse metadata account %s: %v", mint, err)
		return nil
	}
	return meta
}

func (r *Resolver) fetchMintAccount(ctx context.Context, mint string) *MintAccount {
	info, err := r.getAccountInfo(ctx, mint)
	if err != nil || info == nil {
		return nil
	}
	acc, err := ParseMintAccount(info.Data)
	if err != nil {
		r.logger.Printf("[metadata] parse mint account %s: %v", mint, err)
		return nil
	}
	return acc
}

func (r *Resolver) fetchAsset(ctx context.Context, mint string) *Asset {
	if !r.das.Enabled() {
		return nil
	}
	var asset *Asset
	err := r.queue.Do(ctx, func(ctx context.Context) error {
		a, err := r.das.GetAsset(ctx, mint)
		asset = a
		return err
	})
	if err != nil {
		r.logger.Printf("[metadata] das lookup %s: %v", mint, err)
		return nil
	}
	return asset
}

// getAccountInfo runs a chain lookup through the shared rate queue.
func (r *Resolver) getAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	var info *solana.AccountInfo
	err := r.queue.Do(ctx, func(ctx context.Context) error {
		i, err := r.rpc.GetAccountInfo(ctx, pubkey)
		info = i
		return err
	})
	return info, err
}

// resolveDocument fetches the off-chain document with up to 3 attempts.
// Network failures back off longer than data failures, which are permanent
// and never retried.
func (r *Resolver) resolveDocument(ctx context.Context, uri string) (*Document, error) {
	var doc *Document
	op := func() error {
		// Each attempt is one gateway call and takes its own queue slot.
		err := r.queue.Do(ctx, func(ctx context.Context) error {
			d, err := r.fetcher.Resolve(ctx, uri)
			doc = d
			return err
		})
		if err != nil {
			if errors.Is(err, ErrPermanent) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 15 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		return nil, err
	}
	return doc, nil
}

func setIfPresent(dst **string, value string) {
	if *dst != nil || value == "" {
		return
	}
	v := value
	*dst = &v
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
