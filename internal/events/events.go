// Package events carries discovery and market notifications between pipeline
// stages and out to external sinks.
package events

// Event types emitted by the pipeline.
const (
	TypeTokenDiscovered = "token_discovered"
	TypeTokenEnriched   = "token_enriched"
	TypePriceAlert      = "price_alert"
	TypeStatusChanged   = "status_changed"
)

// Event is a single pipeline notification. Fields beyond Type and Mint are
// populated per event type.
type Event struct {
	Type string `json:"type"`
	Mint string `json:"mint"`

	// Discovery fields.
	Source    string `json:"source,omitempty"`
	Signature string `json:"signature,omitempty"`
	Slot      int64  `json:"slot,omitempty"`

	// Enrichment fields.
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`

	// Market fields.
	Price     float64 `json:"price,omitempty"`
	PrevPrice float64 `json:"prev_price,omitempty"`
	ChangePct float64 `json:"change_pct,omitempty"`

	// Lifecycle fields.
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`

	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}
