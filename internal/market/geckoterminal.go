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

const defaultGeckoBaseURL = "https://pro-api.coingecko.com/api/v3"

// GeckoTerminal queries the Coingecko onchain token endpoint. Without an API
// key the provider is disabled and always reports no data.
type GeckoTerminal struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Provider = (*GeckoTerminal)(nil)

// NewGeckoTerminal creates the GeckoTerminal provider.
func NewGeckoTerminal(apiKey string, timeout time.Duration) *GeckoTerminal {
	return &GeckoTerminal{
		baseURL: defaultGeckoBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (g *GeckoTerminal) Name() string { return "geckoterminal" }

type geckoResponse struct {
	Data []struct {
		Attributes struct {
			TotalSupply       string `json:"total_supply"`
			PriceUsd          string `json:"price_usd"`
			FdvUsd            string `json:"fdv_usd"`
			TotalReserveInUsd string `json:"total_reserve_in_usd"`
			VolumeUsd         struct {
				H24 string `json:"h24"`
			} `json:"volume_usd"`
			MarketCapUsd string `json:"market_cap_usd"`
		} `json:"attributes"`
	} `json:"data"`
}

// Fetch implements Provider.
func (g *GeckoTerminal) Fetch(ctx context.Context, mint string) (*Quote, error) {
	if g.apiKey == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/onchain/networks/solana/tokens/multi/%s", g.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-cg-pro-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gecko status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed geckoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal token data: %w", err)
	}

	if len(parsed.Data) == 0 {
		return nil, nil
	}

	attrs := parsed.Data[0].Attributes
	quote := &Quote{
		Price:     parseAmount(attrs.PriceUsd),
		Volume24h: parseAmount(attrs.VolumeUsd.H24),
		Liquidity: parseAmount(attrs.TotalReserveInUsd),
		Supply:    parseAmount(attrs.TotalSupply),
	}

	quote.MarketCap = parseAmount(attrs.MarketCapUsd)
	if quote.MarketCap == 0 {
		quote.MarketCap = parseAmount(attrs.FdvUsd)
	}

	return quote, nil
}

// parseAmount parses Coingecko's string-encoded numbers; empty and malformed
// values read as zero.
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
