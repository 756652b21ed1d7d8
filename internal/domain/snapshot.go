package domain

// MarketSnapshot is an immutable, timestamped record of a token's market
// metrics. Corresponds to the market_snapshots table in PostgreSQL and the
// snapshot_history table in ClickHouse. The current value for a token is the
// snapshot with the maximum CapturedAt.
type MarketSnapshot struct {
	Mint       string  // FK to tokens
	Price      float64 // price in quote currency (USD)
	MarketCap  float64 // computed market capitalization
	Volume24h  float64 // trailing 24h volume
	Liquidity  float64 // liquidity depth
	Provider   string  // provider that produced the quote
	CapturedAt int64   // capture timestamp (ms)
}
