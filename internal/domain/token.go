package domain

// TokenStatus describes where a token currently trades.
// Transitions are monotonic: fresh -> curve -> active, or fresh -> active.
type TokenStatus string

const (
	// StatusFresh marks a token that was just discovered and has no
	// confirmed market signal yet.
	StatusFresh TokenStatus = "fresh"

	// StatusCurve marks a token trading against an on-chain bonding curve.
	StatusCurve TokenStatus = "curve"

	// StatusActive marks a token trading on a general-purpose liquidity venue.
	StatusActive TokenStatus = "active"
)

// Rank returns the ordering of a status for monotonicity checks.
func (s TokenStatus) Rank() int {
	switch s {
	case StatusFresh:
		return 0
	case StatusCurve:
		return 1
	case StatusActive:
		return 2
	default:
		return -1
	}
}

// Token represents a catalog entry for a discovered SPL token.
// Corresponds to the tokens table in PostgreSQL. Mint is the immutable
// primary key; name/symbol/uri/image/socials are filled by enrichment
// under coalesce-on-write semantics.
type Token struct {
	Mint         string      // PRIMARY KEY, ledger-assigned mint address
	Name         *string     // display name (nullable until enriched)
	Symbol       *string     // ticker symbol (nullable until enriched)
	Decimals     int         // mint decimal precision
	Supply       *float64    // total supply adjusted for decimals (nullable)
	Status       TokenStatus // lifecycle status
	Source       string      // discovery source (program that created the mint)
	BondingCurve *string     // bonding curve account (nullable)
	OnCurve      bool        // true while the token trades against a bonding curve
	MetadataURI  *string     // canonical metadata document URI
	ImageURL     *string     // resolved image URL
	Website      *string     // social links (nullable)
	Twitter      *string
	Telegram     *string
	HolderCount  int   // denormalized holder count, refreshed wholesale
	BlockTime    int64 // creation block timestamp (ms)
	DiscoveredAt int64 // first observation timestamp (ms)
	UpdatedAt    int64 // last mutation timestamp (ms)
}

// TokenUpdate carries enrichment results to be merged into a Token.
// Nil fields are "no information" and never clear an existing value.
type TokenUpdate struct {
	Name         *string
	Symbol       *string
	MetadataURI  *string
	ImageURL     *string
	Website      *string
	Twitter      *string
	Telegram     *string
	Decimals     *int
	Supply       *float64
	BondingCurve *string
	OnCurve      *bool
}

// Empty reports whether the update carries no information at all.
func (u *TokenUpdate) Empty() bool {
	return u.Name == nil && u.Symbol == nil && u.MetadataURI == nil &&
		u.ImageURL == nil && u.Website == nil && u.Twitter == nil &&
		u.Telegram == nil && u.Decimals == nil && u.Supply == nil &&
		u.BondingCurve == nil && u.OnCurve == nil
}

// NeedsCoreMetadata reports whether any core enrichment field is still missing.
func (t *Token) NeedsCoreMetadata() bool {
	return isEmpty(t.Name) || isEmpty(t.Symbol) || isEmpty(t.MetadataURI) || isEmpty(t.ImageURL)
}

// NeedsSocials reports whether the token has a metadata document but no
// social links yet. Used by the secondary enrichment pass.
func (t *Token) NeedsSocials() bool {
	return !isEmpty(t.MetadataURI) && isEmpty(t.Website) && isEmpty(t.Twitter) && isEmpty(t.Telegram)
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
