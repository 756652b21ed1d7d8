package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"solana-token-catalog/internal/domain"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/solana/stub"
	"solana-token-catalog/internal/storage"
	"solana-token-catalog/internal/storage/memory"
)

// wrappedSOL is a well-formed mint pubkey so PDA derivation succeeds.
const wrappedSOL = "So11111111111111111111111111111111111111112"

func strp(s string) *string { return &s }

func newTestResolver(t *testing.T, rpc solana.RPCClient, das *DASClient, tokens storage.TokenStore, bus *events.Bus) *Resolver {
	t.Helper()
	queue := ratequeue.New(time.Millisecond, nil)
	t.Cleanup(queue.Close)
	return NewResolver(rpc, queue, newTestFetcher(), das, tokens, ResolverOptions{Bus: bus})
}

func TestResolver_EnrichOneMergesOnChainAndDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "Real Coin",
			"symbol": "REAL",
			"image": "https://cdn.example/real.png",
			"extensions": {"twitter": "https://twitter.com/real", "website": "https://real.example"}
		}`))
	}))
	defer server.Close()

	rpc := stub.NewRPCClient()
	rpc.AddAccount(wrappedSOL, &solana.AccountInfo{Data: buildMintData(1_000_000_000, 6)})

	pda, err := solana.MetadataPDA(wrappedSOL)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}
	rpc.AddAccount(pda, &solana.AccountInfo{Data: buildMetadataData("Real Coin", "REAL", server.URL+"/meta.json")})

	tokens := memory.NewTokenStore()
	ctx := context.Background()
	tokens.Upsert(ctx, &domain.Token{Mint: wrappedSOL})

	bus := events.NewBus(nil)
	defer bus.Close()
	enriched := bus.Subscribe(4)

	r := newTestResolver(t, rpc, nil, tokens, bus)
	if err := r.EnrichOne(ctx, wrappedSOL); err != nil {
		t.Fatalf("EnrichOne: %v", err)
	}

	got, err := tokens.GetByMint(ctx, wrappedSOL)
	if err != nil {
		t.Fatalf("GetByMint: %v", err)
	}
	if got.Name == nil || *got.Name != "Real Coin" {
		t.Errorf("name = %v", got.Name)
	}
	if got.Symbol == nil || *got.Symbol != "REAL" {
		t.Errorf("symbol = %v", got.Symbol)
	}
	if got.MetadataURI == nil || *got.MetadataURI != server.URL+"/meta.json" {
		t.Errorf("uri = %v", got.MetadataURI)
	}
	if got.ImageURL == nil || *got.ImageURL != "https://cdn.example/real.png" {
		t.Errorf("image = %v", got.ImageURL)
	}
	if got.Twitter == nil || *got.Twitter != "https://twitter.com/real" {
		t.Errorf("twitter = %v", got.Twitter)
	}
	if got.Supply == nil || *got.Supply != 1_000_000_000 {
		t.Errorf("supply not backfilled: %v", got.Supply)
	}
	if got.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", got.Decimals)
	}

	select {
	case e := <-enriched:
		if e.Type != events.TypeTokenEnriched || e.Mint != wrappedSOL || e.Name != "Real Coin" {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("no enriched event published")
	}
}

func TestResolver_EnrichOnePreservesExistingFields(t *testing.T) {
	pda, _ := solana.MetadataPDA(wrappedSOL)
	rpc := stub.NewRPCClient()
	rpc.AddAccount(pda, &solana.AccountInfo{Data: buildMetadataData("Late Name", "LATE", "")})

	tokens := memory.NewTokenStore()
	ctx := context.Background()
	supply := 1.0
	tokens.Upsert(ctx, &domain.Token{Mint: wrappedSOL, Name: strp("First Name"), Supply: &supply})

	r := newTestResolver(t, rpc, nil, tokens, nil)
	if err := r.EnrichOne(ctx, wrappedSOL); err != nil {
		t.Fatalf("EnrichOne: %v", err)
	}

	got, _ := tokens.GetByMint(ctx, wrappedSOL)
	if *got.Name != "First Name" {
		t.Errorf("existing name overwritten: %q", *got.Name)
	}
	if got.Symbol == nil || *got.Symbol != "LATE" {
		t.Errorf("missing symbol should fill: %v", got.Symbol)
	}
}

func TestResolver_EnrichOneDeletesDenyListed(t *testing.T) {
	pda, _ := solana.MetadataPDA(wrappedSOL)
	rpc := stub.NewRPCClient()
	rpc.AddAccount(pda, &solana.AccountInfo{Data: buildMetadataData("Raydium LP Pool", "RLP", "")})

	tokens := memory.NewTokenStore()
	ctx := context.Background()
	supply := 1.0
	tokens.Upsert(ctx, &domain.Token{Mint: wrappedSOL, Supply: &supply})

	r := newTestResolver(t, rpc, nil, tokens, nil)
	if err := r.EnrichOne(ctx, wrappedSOL); err != nil {
		t.Fatalf("EnrichOne: %v", err)
	}

	if _, err := tokens.GetByMint(ctx, wrappedSOL); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deny-listed token should be removed, got %v", err)
	}
}

func TestResolver_DASFallback(t *testing.T) {
	dasServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"jsonrpc": "2.0",
			"id": 1,
			"result": {
				"content": {
					"json_uri": "",
					"metadata": {"name": "Indexed Coin", "symbol": "IDX"},
					"links": {"image": "https://cdn.example/idx.png"}
				}
			}
		}`))
	}))
	defer dasServer.Close()

	// No metadata PDA account registered, so on-chain yields nothing.
	rpc := stub.NewRPCClient()

	tokens := memory.NewTokenStore()
	ctx := context.Background()
	supply := 1.0
	tokens.Upsert(ctx, &domain.Token{Mint: wrappedSOL, Supply: &supply})

	das := NewDASClient(dasServer.URL, time.Second)
	r := newTestResolver(t, rpc, das, tokens, nil)
	if err := r.EnrichOne(ctx, wrappedSOL); err != nil {
		t.Fatalf("EnrichOne: %v", err)
	}

	got, _ := tokens.GetByMint(ctx, wrappedSOL)
	if got.Name == nil || *got.Name != "Indexed Coin" {
		t.Errorf("name = %v", got.Name)
	}
	if got.ImageURL == nil || *got.ImageURL != "https://cdn.example/idx.png" {
		t.Errorf("image = %v", got.ImageURL)
	}
}

func TestResolver_SecondaryPassFillsSocials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "N", "extensions": {"telegram": "https://t.me/real"}}`))
	}))
	defer server.Close()

	rpc := stub.NewRPCClient()
	tokens := memory.NewTokenStore()
	ctx := context.Background()
	tokens.Upsert(ctx, &domain.Token{Mint: "M1", MetadataURI: strp(server.URL + "/meta.json")})

	r := newTestResolver(t, rpc, nil, tokens, nil)
	n, err := r.SecondaryPass(ctx, 10)
	if err != nil {
		t.Fatalf("SecondaryPass: %v", err)
	}
	if n != 1 {
		t.Errorf("enriched = %d, want 1", n)
	}

	got, _ := tokens.GetByMint(ctx, "M1")
	if got.Telegram == nil || *got.Telegram != "https://t.me/real" {
		t.Errorf("telegram = %v", got.Telegram)
	}
}

func TestResolver_PrimaryPassSettlesBatch(t *testing.T) {
	rpc := stub.NewRPCClient()
	tokens := memory.NewTokenStore()
	ctx := context.Background()
	supply := 1.0
	for _, mint := range []string{"A1", "A2", "A3"} {
		// Malformed pubkeys: every lookup fails, which must not abort
		// the batch.
		tokens.Upsert(ctx, &domain.Token{Mint: mint, Supply: &supply})
	}

	r := newTestResolver(t, rpc, nil, tokens, nil)
	n, err := r.PrimaryPass(ctx, 10)
	if err != nil {
		t.Fatalf("PrimaryPass: %v", err)
	}
	if n != 3 {
		t.Errorf("settled = %d, want 3", n)
	}
}

// timestampedRPC records when each account lookup starts.
type timestampedRPC struct {
	*stub.RPCClient

	mu    sync.Mutex
	calls []time.Time
}

func (c *timestampedRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	c.calls = append(c.calls, time.Now())
	c.mu.Unlock()
	return c.RPCClient.GetAccountInfo(ctx, pubkey)
}

func TestResolver_PrimaryPassPacesChainLookups(t *testing.T) {
	const interval = 20 * time.Millisecond

	rpc := &timestampedRPC{RPCClient: stub.NewRPCClient()}
	tokens := memory.NewTokenStore()
	ctx := context.Background()
	// Supply unset, so each token needs one mint account lookup. The
	// malformed pubkeys keep PDA derivation (and any further I/O) out of
	// the picture.
	for _, mint := range []string{"A1", "A2", "A3", "A4"} {
		tokens.Upsert(ctx, &domain.Token{Mint: mint})
	}

	queue := ratequeue.New(interval, nil)
	t.Cleanup(queue.Close)
	r := NewResolver(rpc, queue, newTestFetcher(), nil, tokens, ResolverOptions{})

	start := time.Now()
	if _, err := r.PrimaryPass(ctx, 10); err != nil {
		t.Fatalf("PrimaryPass: %v", err)
	}
	elapsed := time.Since(start)

	rpc.mu.Lock()
	calls := len(rpc.calls)
	rpc.mu.Unlock()
	if calls != 4 {
		t.Fatalf("chain lookups = %d, want 4", calls)
	}

	// Four concurrent enrichments must still drain through the queue one
	// at a time: at least (N-1) intervals of wall clock.
	if min := 3 * interval; elapsed < min {
		t.Errorf("4 lookups drained in %v, want >= %v", elapsed, min)
	}
}
