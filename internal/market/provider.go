// Package market acquires price and liquidity data from external providers
// and maintains the append-only snapshot series for each token.
package market

import (
	"context"
)

// Quote is one provider's normalized view of a token's market state. A zero
// Price means the provider had no usable data.
type Quote struct {
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
	Volume24h float64 `json:"volume_24h"`
	Liquidity float64 `json:"liquidity"`
	Supply    float64 `json:"supply"`
	Holders   int     `json:"holders"`

	// Provider records which source produced the quote. Set by the
	// aggregator, not by providers.
	Provider string `json:"provider,omitempty"`
}

// Provider fetches a market quote for a mint. Implementations return
// (nil, nil) when they are disabled or have no data for the mint; errors are
// reserved for transport and decoding failures.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, mint string) (*Quote, error)
}
