package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-token-catalog/internal/config"
	"solana-token-catalog/internal/events"
	"solana-token-catalog/internal/holders"
	"solana-token-catalog/internal/lifecycle"
	"solana-token-catalog/internal/market"
	"solana-token-catalog/internal/metadata"
	"solana-token-catalog/internal/observability"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/storage"
	chstore "solana-token-catalog/internal/storage/clickhouse"
	"solana-token-catalog/internal/storage/memory"
	"solana-token-catalog/internal/storage/migrations"
	pgstore "solana-token-catalog/internal/storage/postgres"
	"solana-token-catalog/internal/sweep"
	"solana-token-catalog/internal/watcher"
)

const (
	providerTimeout = 10 * time.Second
	pruneEvery      = 1 * time.Hour
	queueDepthEvery = 10 * time.Second
)

func main() {
	logger := log.New(os.Stdout, "[catalogd] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	cfg.WarnOptional(logger)

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, logger)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the full pipeline and blocks on the mint watcher until the
// context is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)

	wsConfig := solana.DefaultWSConfig()
	wsConfig.Logger = logger
	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsConfig)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	// Create stores (use interfaces)
	var tokenStore storage.TokenStore = memory.NewTokenStore()
	var snapshotStore storage.SnapshotStore = memory.NewSnapshotStore()
	var holderStore storage.HolderStore = memory.NewHolderStore()

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		tokenStore = pgstore.NewTokenStore(pool)
		snapshotStore = pgstore.NewSnapshotStore(pool)
		holderStore = pgstore.NewHolderStore(pool)
	}

	var history storage.SnapshotHistorySink
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer conn.Close()

		history = chstore.NewSnapshotHistoryStore(conn)
	}

	// Event sinks
	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
	}
	defer publisher.Close()

	bus := events.NewBus(logger)
	defer bus.Close()

	// Rate queues: one for chain RPC, one for market providers
	rpcQueue := ratequeue.New(cfg.RPCRateInterval, logger)
	defer rpcQueue.Close()
	marketQueue := ratequeue.New(cfg.MarketRateInterval, logger)
	defer marketQueue.Close()

	go reportQueueDepth(ctx, rpcQueue, marketQueue)

	// Enrichment
	fetcher := metadata.NewFetcher(0, logger)
	var das *metadata.DASClient
	if cfg.DASEndpoint != "" {
		das = metadata.NewDASClient(cfg.DASEndpoint, 0)
	}
	resolver := metadata.NewResolver(rpc, rpcQueue, fetcher, das, tokenStore, metadata.ResolverOptions{
		Bus:    bus,
		Logger: logger,
	})

	// Market providers in priority order
	var providers []market.Provider
	if cfg.BirdeyeAPIKey != "" {
		providers = append(providers, market.NewBirdeye(cfg.BirdeyeAPIKey, providerTimeout))
	}
	providers = append(providers, market.NewDexScreener(providerTimeout))
	if cfg.CoingeckoAPIKey != "" {
		providers = append(providers, market.NewGeckoTerminal(cfg.CoingeckoAPIKey, providerTimeout))
	}

	var cache *market.QuoteCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = market.NewQuoteCache(rdb, 0)
	}

	aggregator := market.NewAggregator(providers, marketQueue, tokenStore, snapshotStore, market.AggregatorOptions{
		History:        history,
		Cache:          cache,
		Publisher:      publisher,
		AlertThreshold: cfg.AlertThreshold,
		Logger:         logger,
	})

	coordinator := lifecycle.NewCoordinator(tokenStore, snapshotStore, lifecycle.CoordinatorOptions{
		Publisher: publisher,
		ScanLimit: cfg.SweepLimit,
		Logger:    logger,
	})

	holderIndexer := holders.NewIndexer(rpc, rpcQueue, tokenStore, holderStore, logger)

	// Eager enrichment on discovery; the interval sweep re-covers anything
	// dropped here.
	go func() {
		for e := range bus.Subscribe(256) {
			if e.Type != events.TypeTokenDiscovered {
				continue
			}
			if err := resolver.EnrichOne(ctx, e.Mint); err != nil {
				logger.Printf("Eager enrich %s: %v", e.Mint, err)
			}
		}
	}()

	scheduler := sweep.NewScheduler([]sweep.Job{
		timedJob("enrich_primary", cfg.EnrichEvery, func(ctx context.Context) error {
			n, err := resolver.PrimaryPass(ctx, cfg.SweepLimit)
			if n > 0 {
				logger.Printf("Enriched %d tokens", n)
			}
			return err
		}),
		timedJob("enrich_socials", cfg.EnrichEvery, func(ctx context.Context) error {
			_, err := resolver.SecondaryPass(ctx, cfg.SweepLimit)
			return err
		}),
		timedJob("market", cfg.MarketSweepEvery, func(ctx context.Context) error {
			n, err := aggregator.SweepRecent(ctx, cfg.SweepLimit)
			if n > 0 {
				logger.Printf("Wrote %d market snapshots", n)
			}
			return err
		}),
		timedJob("lifecycle", cfg.LifecycleEvery, func(ctx context.Context) error {
			n, err := coordinator.Sweep(ctx)
			if n > 0 {
				logger.Printf("Advanced %d tokens", n)
			}
			return err
		}),
		timedJob("holders", cfg.HoldersEvery, func(ctx context.Context) error {
			_, err := holderIndexer.SweepRecent(ctx, cfg.SweepLimit)
			return err
		}),
		timedJob("prune", pruneEvery, func(ctx context.Context) error {
			cutoff := time.Now().Add(-cfg.SnapshotRetention).UnixMilli()
			removed, err := snapshotStore.Prune(ctx, cutoff)
			if removed > 0 {
				logger.Printf("Pruned %d snapshots", removed)
			}
			return err
		}),
	}, logger)

	scheduler.Start(ctx)
	defer scheduler.Stop()

	w := watcher.New(ws, rpc, rpcQueue, tokenStore, watcher.Options{
		Publisher: publisher,
		Bus:       bus,
		Logger:    logger,
	})

	logger.Println("Starting mint watcher...")
	return w.Run(ctx)
}

// timedJob wraps a sweep job with a duration metric.
func timedJob(name string, interval time.Duration, fn func(context.Context) error) sweep.Job {
	return sweep.Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) error {
			start := time.Now()
			err := fn(ctx)
			observability.RecordSweepDuration(name, time.Since(start).Seconds())
			return err
		},
	}
}

// reportQueueDepth exports the combined rate queue backlog until ctx ends.
func reportQueueDepth(ctx context.Context, queues ...*ratequeue.Queue) {
	ticker := time.NewTicker(queueDepthEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth := 0
			for _, q := range queues {
				depth += q.Len()
			}
			observability.UpdateQueueDepth(depth)
		}
	}
}
