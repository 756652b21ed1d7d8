package market

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "market:quote:"

// QuoteCache is a short-lived Redis cache in front of the provider chain,
// so that overlapping sweeps and the high-frequency tracker do not burn
// provider quota on the same mint. A nil cache disables caching.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteCache creates a quote cache.
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &QuoteCache{client: client, ttl: ttl}
}

// Get returns a cached quote for the mint, if any. Cache errors read as
// misses.
func (c *QuoteCache) Get(ctx context.Context, mint string) (*Quote, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, quoteKeyPrefix+mint).Bytes()
	if err != nil {
		return nil, false
	}

	var quote Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, false
	}
	return &quote, true
}

// Set stores a quote. Failures are ignored; the cache is advisory.
func (c *QuoteCache) Set(ctx context.Context, mint string, quote *Quote) {
	if c == nil || c.client == nil || quote == nil {
		return
	}

	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	c.client.Set(ctx, quoteKeyPrefix+mint, raw, c.ttl)
}
