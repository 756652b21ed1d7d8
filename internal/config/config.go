// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full catalogd configuration. Optional integrations that are
// left unset disable the corresponding component rather than failing startup.
type Config struct {
	RPCEndpoint string `envconfig:"RPC_ENDPOINT" required:"true"`
	WSEndpoint  string `envconfig:"WS_ENDPOINT" required:"true"`

	// Storage. Empty PostgresDSN selects the in-memory store.
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`

	// Market providers.
	BirdeyeAPIKey   string `envconfig:"BIRDEYE_API_KEY"`
	CoingeckoAPIKey string `envconfig:"COINGECKO_API_KEY"`

	// Optional integrations.
	DASEndpoint  string `envconfig:"DAS_ENDPOINT"`
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"token-catalog-events"`

	// Tuning.
	RPCRateInterval    time.Duration `envconfig:"RPC_RATE_INTERVAL" default:"200ms"`
	MarketRateInterval time.Duration `envconfig:"MARKET_RATE_INTERVAL" default:"500ms"`
	MarketSweepEvery   time.Duration `envconfig:"MARKET_SWEEP_EVERY" default:"1m"`
	EnrichEvery        time.Duration `envconfig:"ENRICH_EVERY" default:"30s"`
	LifecycleEvery     time.Duration `envconfig:"LIFECYCLE_EVERY" default:"1m"`
	HoldersEvery       time.Duration `envconfig:"HOLDERS_EVERY" default:"5m"`
	SnapshotRetention  time.Duration `envconfig:"SNAPSHOT_RETENTION" default:"168h"`
	SweepLimit         int           `envconfig:"SWEEP_LIMIT" default:"200"`
	AlertThreshold     float64       `envconfig:"ALERT_THRESHOLD" default:"0.05"`

	// HTTP.
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9091"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is the normal production case.
		log.Printf("[config] no .env file loaded: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// WarnOptional logs which optional integrations are disabled so a degraded
// deployment is visible in the startup output.
func (c *Config) WarnOptional(logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	if c.PostgresDSN == "" {
		logger.Println("[config] POSTGRES_DSN not set, using in-memory storage")
	}
	if c.ClickhouseDSN == "" {
		logger.Println("[config] CLICKHOUSE_DSN not set, snapshot history disabled")
	}
	if c.BirdeyeAPIKey == "" {
		logger.Println("[config] BIRDEYE_API_KEY not set, birdeye provider disabled")
	}
	if c.CoingeckoAPIKey == "" {
		logger.Println("[config] COINGECKO_API_KEY not set, geckoterminal provider disabled")
	}
	if c.DASEndpoint == "" {
		logger.Println("[config] DAS_ENDPOINT not set, DAS fallback disabled")
	}
	if c.RedisAddr == "" {
		logger.Println("[config] REDIS_ADDR not set, quote cache disabled")
	}
	if c.KafkaBrokers == "" {
		logger.Println("[config] KAFKA_BROKERS not set, events logged locally only")
	}
}
