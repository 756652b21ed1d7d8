package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// maxDocumentSize bounds how much of a metadata document is read.
	// Public stores serve arbitrary content; 1 MiB is far above any
	// legitimate token metadata document.
	maxDocumentSize = 1 << 20

	defaultFetchTimeout = 15 * time.Second
	defaultGatewayDelay = 500 * time.Millisecond
)

// ErrPermanent marks resolution failures that would repeat identically on a
// retry: unresolvable URIs, malformed documents, 4xx responses. Network and
// gateway failures are not permanent.
var ErrPermanent = errors.New("permanent metadata failure")

// Document is the normalized result of resolving an off-chain metadata URI.
type Document struct {
	Name        string
	Symbol      string
	Description string
	ImageURL    string
	Website     string
	Twitter     string
	Telegram    string
}

// offChainJSON mirrors the loose shape of token metadata documents in the
// wild. Image references appear under several keys depending on the minting
// tool, so all known candidates are captured.
type offChainJSON struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ImageURL    string `json:"image_url"`
	Icon        string `json:"icon"`
	Logo        string `json:"logo"`
	ExternalURL string `json:"external_url"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`

	Properties *struct {
		Image string `json:"image"`
		Files []struct {
			URI  string `json:"uri"`
			Type string `json:"type"`
		} `json:"files"`
	} `json:"properties"`

	Extensions *struct {
		Website  string `json:"website"`
		Twitter  string `json:"twitter"`
		Telegram string `json:"telegram"`
	} `json:"extensions"`
}

// Fetcher resolves off-chain metadata URIs into normalized documents,
// rotating content-addressed gateways on failure.
type Fetcher struct {
	client       *http.Client
	logger       *log.Logger
	gatewayDelay time.Duration
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, logger *log.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
		gatewayDelay: defaultGatewayDelay,
	}
}

// Resolve fetches the metadata document behind uri. Gateway candidates are
// tried in priority order with a short delay between rotations. A response
// that is itself an image yields a document holding only ImageURL.
func (f *Fetcher) Resolve(ctx context.Context, uri string) (*Document, error) {
	candidates := CandidateURLs(uri)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: unresolvable uri %q", ErrPermanent, uri)
	}

	var lastErr error
	for i, candidate := range candidates {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.gatewayDelay):
			}
		}

		doc, retryable, err := f.fetchOne(ctx, candidate)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable {
			// Malformed content will be identical on every gateway.
			return nil, fmt.Errorf("%w: %s", ErrPermanent, err)
		}
		f.logger.Printf("[metadata] gateway failed, rotating: %v", err)
	}

	return nil, fmt.Errorf("all gateways failed: %w", lastErr)
}

// fetchOne fetches a single candidate URL. The second return value reports
// whether trying another gateway could help.
func (f *Fetcher) fetchOne(ctx context.Context, fetchURL string) (*Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("get %s: %w", fetchURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("get %s: status %d", fetchURL, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("get %s: status %d", fetchURL, resp.StatusCode)
	}

	// An image URI is its own image.
	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		return &Document{ImageURL: fetchURL}, false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	doc, err := parseDocument(body, fetchURL)
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

// parseDocument interprets a metadata response body. Content-type headers
// are ignored here since public stores routinely mislabel JSON as text or
// octet-stream.
func parseDocument(body []byte, docURL string) (*Document, error) {
	trimmed := strings.TrimSpace(string(body))

	// Inline SVG served directly in place of a document.
	if strings.HasPrefix(trimmed, "<svg") {
		return &Document{ImageURL: svgDataURI(trimmed)}, nil
	}

	var raw offChainJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse metadata json: %w", err)
	}

	doc := &Document{
		Name:        strings.TrimSpace(raw.Name),
		Symbol:      strings.TrimSpace(raw.Symbol),
		Description: strings.TrimSpace(raw.Description),
		ImageURL:    extractImage(&raw, docURL),
	}

	doc.Website = firstNonEmpty(raw.Website, raw.ExternalURL)
	doc.Twitter = raw.Twitter
	doc.Telegram = raw.Telegram
	if raw.Extensions != nil {
		doc.Website = firstNonEmpty(doc.Website, raw.Extensions.Website)
		doc.Twitter = firstNonEmpty(doc.Twitter, raw.Extensions.Twitter)
		doc.Telegram = firstNonEmpty(doc.Telegram, raw.Extensions.Telegram)
	}

	return doc, nil
}

// extractImage walks the candidate image fields in priority order.
func extractImage(raw *offChainJSON, docURL string) string {
	candidates := []string{raw.Image, raw.ImageURL}
	if raw.Properties != nil {
		candidates = append(candidates, raw.Properties.Image)
		for _, file := range raw.Properties.Files {
			if strings.HasPrefix(file.Type, "image/") || file.Type == "" {
				candidates = append(candidates, file.URI)
			}
		}
	}
	candidates = append(candidates, raw.Icon, raw.Logo)

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.HasPrefix(c, "<svg") {
			return svgDataURI(c)
		}
		if strings.HasPrefix(c, "data:") {
			return c
		}
		if normalized := NormalizeURI(c); normalized != "" {
			return normalized
		}
		// Relative reference: resolve against the document's own URL.
		if resolved := resolveRelative(docURL, c); resolved != "" {
			return resolved
		}
	}

	return ""
}

func svgDataURI(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func resolveRelative(docURL, ref string) string {
	base, err := url.Parse(docURL)
	if err != nil {
		return ""
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(rel)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
