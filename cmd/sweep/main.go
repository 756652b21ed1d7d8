// Command sweep runs one maintenance pass over the catalog and exits. It
// covers the same work as catalogd's background jobs, for cron-style
// deployments and backfilling after downtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"solana-token-catalog/internal/holders"
	"solana-token-catalog/internal/lifecycle"
	"solana-token-catalog/internal/market"
	"solana-token-catalog/internal/metadata"
	"solana-token-catalog/internal/ratequeue"
	"solana-token-catalog/internal/solana"
	"solana-token-catalog/internal/storage"
	chstore "solana-token-catalog/internal/storage/clickhouse"
	"solana-token-catalog/internal/storage/migrations"
	pgstore "solana-token-catalog/internal/storage/postgres"
)

const providerTimeout = 10 * time.Second

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	dasEndpoint := flag.String("das-endpoint", os.Getenv("DAS_ENDPOINT"), "DAS API endpoint (optional)")
	jobs := flag.String("jobs", "enrich,market,lifecycle,holders,prune", "Comma-separated jobs to run")
	limit := flag.Int("limit", 200, "Per-job token batch size")
	retention := flag.Duration("retention", 168*time.Hour, "Snapshot retention for the prune job")
	rateInterval := flag.Duration("rate-interval", 200*time.Millisecond, "Minimum spacing between outbound calls")
	timeout := flag.Duration("timeout", 15*time.Minute, "Overall pass deadline")

	flag.Parse()

	logger := log.New(os.Stdout, "[sweep] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := runPass(ctx, logger, *rpcEndpoint, *postgresDSN, *clickhouseDSN, *dasEndpoint, *jobs, *limit, *retention, *rateInterval); err != nil {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Pass complete")
}

func runPass(ctx context.Context, logger *log.Logger, rpcEndpoint, postgresDSN, clickhouseDSN, dasEndpoint, jobs string, limit int, retention, rateInterval time.Duration) error {
	rpc := solana.NewHTTPClient(rpcEndpoint)

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run postgres migrations: %w", err)
	}

	tokenStore := pgstore.NewTokenStore(pool)
	snapshotStore := pgstore.NewSnapshotStore(pool)
	holderStore := pgstore.NewHolderStore(pool)

	var history storage.SnapshotHistorySink
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer conn.Close()

		history = chstore.NewSnapshotHistoryStore(conn)
	}

	queue := ratequeue.New(rateInterval, logger)
	defer queue.Close()

	selected := make(map[string]bool)
	for _, job := range strings.Split(jobs, ",") {
		selected[strings.TrimSpace(strings.ToLower(job))] = true
	}

	if selected["enrich"] {
		var das *metadata.DASClient
		if dasEndpoint != "" {
			das = metadata.NewDASClient(dasEndpoint, 0)
		}
		resolver := metadata.NewResolver(rpc, queue, metadata.NewFetcher(0, logger), das, tokenStore, metadata.ResolverOptions{
			Logger: logger,
		})

		n, err := resolver.PrimaryPass(ctx, limit)
		if err != nil {
			return fmt.Errorf("enrich primary: %w", err)
		}
		logger.Printf("Enriched %d tokens", n)

		if _, err := resolver.SecondaryPass(ctx, limit); err != nil {
			return fmt.Errorf("enrich socials: %w", err)
		}
	}

	if selected["market"] {
		var providers []market.Provider
		if key := os.Getenv("BIRDEYE_API_KEY"); key != "" {
			providers = append(providers, market.NewBirdeye(key, providerTimeout))
		}
		providers = append(providers, market.NewDexScreener(providerTimeout))
		if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
			providers = append(providers, market.NewGeckoTerminal(key, providerTimeout))
		}

		aggregator := market.NewAggregator(providers, queue, tokenStore, snapshotStore, market.AggregatorOptions{
			History: history,
			Logger:  logger,
		})

		n, err := aggregator.SweepRecent(ctx, limit)
		if err != nil {
			return fmt.Errorf("market sweep: %w", err)
		}
		logger.Printf("Wrote %d market snapshots", n)
	}

	if selected["lifecycle"] {
		coordinator := lifecycle.NewCoordinator(tokenStore, snapshotStore, lifecycle.CoordinatorOptions{
			ScanLimit: limit,
			Logger:    logger,
		})

		n, err := coordinator.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("lifecycle sweep: %w", err)
		}
		logger.Printf("Advanced %d tokens", n)
	}

	if selected["holders"] {
		indexer := holders.NewIndexer(rpc, queue, tokenStore, holderStore, logger)

		n, err := indexer.SweepRecent(ctx, limit)
		if err != nil {
			return fmt.Errorf("holder sweep: %w", err)
		}
		logger.Printf("Refreshed holders for %d tokens", n)
	}

	if selected["prune"] {
		cutoff := time.Now().Add(-retention).UnixMilli()
		removed, err := snapshotStore.Prune(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		logger.Printf("Pruned %d snapshots", removed)
	}

	return nil
}
