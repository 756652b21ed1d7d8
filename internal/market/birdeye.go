package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBirdeyeBaseURL = "https://public-api.birdeye.so"

// Birdeye queries the Birdeye token_overview endpoint. Without an API key
// the provider is disabled and always reports no data.
type Birdeye struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Provider = (*Birdeye)(nil)

// NewBirdeye creates the Birdeye provider.
func NewBirdeye(apiKey string, timeout time.Duration) *Birdeye {
	return &Birdeye{
		baseURL: defaultBirdeyeBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (b *Birdeye) Name() string { return "birdeye" }

type birdeyeOverview struct {
	Success bool `json:"success"`
	Data    struct {
		Price     float64 `json:"price"`
		Mc        float64 `json:"mc"`
		Supply    float64 `json:"supply"`
		Volume24H float64 `json:"v24hUSD"`
		Liquidity float64 `json:"liquidity"`
		Holders   int     `json:"holder"`
	} `json:"data"`
}

// Fetch implements Provider.
func (b *Birdeye) Fetch(ctx context.Context, mint string) (*Quote, error) {
	if b.apiKey == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/defi/token_overview?address=%s", b.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", b.apiKey)
	req.Header.Set("x-chain", "solana")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("birdeye request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("birdeye status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var overview birdeyeOverview
	if err := json.Unmarshal(body, &overview); err != nil {
		return nil, fmt.Errorf("unmarshal overview: %w", err)
	}

	if !overview.Success {
		return nil, nil
	}

	return &Quote{
		Price:     overview.Data.Price,
		MarketCap: overview.Data.Mc,
		Volume24h: overview.Data.Volume24H,
		Liquidity: overview.Data.Liquidity,
		Supply:    overview.Data.Supply,
		Holders:   overview.Data.Holders,
	}, nil
}
