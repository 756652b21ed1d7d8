package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultDexScreenerBaseURL = "https://api.dexscreener.com"

// DexScreener queries the public DexScreener pair API. No API key required.
type DexScreener struct {
	baseURL string
	client  *http.Client
}

var _ Provider = (*DexScreener)(nil)

// NewDexScreener creates the DexScreener provider.
func NewDexScreener(timeout time.Duration) *DexScreener {
	return &DexScreener{
		baseURL: defaultDexScreenerBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (d *DexScreener) Name() string { return "dexscreener" }

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	PriceUsd  string `json:"priceUsd"`
	MarketCap float64 `json:"marketCap"`
	Fdv       float64 `json:"fdv"`
	Liquidity struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
}

// Fetch implements Provider. A token can trade in many pairs; the one with
// the deepest liquidity is taken as authoritative.
func (d *DexScreener) Fetch(ctx context.Context, mint string) (*Quote, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed dexScreenerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal pairs: %w", err)
	}

	if len(parsed.Pairs) == 0 {
		return nil, nil
	}

	best := parsed.Pairs[0]
	for _, pair := range parsed.Pairs[1:] {
		if pair.Liquidity.Usd > best.Liquidity.Usd {
			best = pair
		}
	}

	price, err := strconv.ParseFloat(best.PriceUsd, 64)
	if err != nil {
		return nil, nil // unpriced pair
	}

	marketCap := best.MarketCap
	if marketCap == 0 {
		marketCap = best.Fdv
	}

	return &Quote{
		Price:     price,
		MarketCap: marketCap,
		Volume24h: best.Volume.H24,
		Liquidity: best.Liquidity.Usd,
	}, nil
}
