package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DASClient queries a Digital Asset Standard indexing endpoint as a secondary
// metadata source when on-chain parsing yields nothing.
type DASClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// NewDASClient creates a DAS client. An empty endpoint disables the client;
// GetAsset then always reports no data.
func NewDASClient(endpoint string, timeout time.Duration) *DASClient {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &DASClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *DASClient) Enabled() bool { return c != nil && c.endpoint != "" }

// Asset is the subset of a DAS getAsset response the resolver consumes.
type Asset struct {
	Name     string
	Symbol   string
	JSONURI  string
	ImageURL string
}

// GetAsset looks up asset metadata for a mint. Returns nil when the asset is
// unknown to the indexer or the client is disabled.
func (c *DASClient) GetAsset(ctx context.Context, mint string) (*Asset, error) {
	if !c.Enabled() {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      c.requestID.Add(1),
		"method":  "getAsset",
		"params":  map[string]string{"id": mint},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Result *struct {
			Content *struct {
				JSONURI  string `json:"json_uri"`
				Metadata struct {
					Name   string `json:"name"`
					Symbol string `json:"symbol"`
				} `json:"metadata"`
				Links struct {
					Image string `json:"image"`
				} `json:"links"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		// Unknown asset is an expected outcome, not a fault.
		return nil, nil
	}
	if parsed.Result == nil || parsed.Result.Content == nil {
		return nil, nil
	}

	content := parsed.Result.Content
	return &Asset{
		Name:     content.Metadata.Name,
		Symbol:   content.Metadata.Symbol,
		JSONURI:  content.JSONURI,
		ImageURL: content.Links.Image,
	}, nil
}
