// Package classify centralizes the deny-list policy for unwanted token
// categories. All rejection heuristics live here so the policy is testable
// in one place instead of scattered string checks.
package classify

import "strings"

// Outcome is the tagged result of a classification check.
type Outcome struct {
	Accept bool
	Reason string // non-empty when rejected
}

var accepted = Outcome{Accept: true}

// mintDenySubstrings rejects infrastructure accounts that show up in
// token-creation instructions but are not tradable tokens themselves.
// Matching is case-insensitive on the raw mint string.
var mintDenySubstrings = []struct {
	substr string
	reason string
}{
	{"pool", "pool account"},
	{"vault", "vault account"},
}

// mintDenyAffixes carries the short markers. Three or four base58 characters
// occur incidentally inside legitimate 44-char mints, so these only match at
// the start or end of the string, where vanity-ground addresses put them.
var mintDenyAffixes = []struct {
	affix  string
	reason string
}{
	{"wrap", "wrapped token"},
	{"ata", "associated token account"},
}

// nameDenySubstrings rejects tokens whose resolved name or symbol marks
// them as infrastructure or placeholder entries.
var nameDenySubstrings = []struct {
	substr string
	reason string
}{
	{"wrapped", "wrapped token"},
	{"vault", "vault token"},
	{"pool", "pool token"},
	{"lp token", "liquidity pool token"},
	{"bonding curve", "bonding curve infrastructure"},
	{"test token", "placeholder token"},
	{"testtoken", "placeholder token"},
}

// Mint classifies a raw mint address before persistence. Rejections here
// keep obvious noise out of the catalog without any further I/O.
func Mint(mint string) Outcome {
	if mint == "" {
		return Outcome{Accept: false, Reason: "empty mint"}
	}

	lower := strings.ToLower(mint)
	for _, d := range mintDenySubstrings {
		if strings.Contains(lower, d.substr) {
			return Outcome{Accept: false, Reason: d.reason}
		}
	}
	for _, d := range mintDenyAffixes {
		if strings.HasPrefix(lower, d.affix) || strings.HasSuffix(lower, d.affix) {
			return Outcome{Accept: false, Reason: d.reason}
		}
	}

	return accepted
}

// Metadata classifies a token after enrichment resolved its name and symbol.
// A rejected token is discarded from further processing rather than saved.
func Metadata(name, symbol string) Outcome {
	lowerName := strings.ToLower(name)
	lowerSymbol := strings.ToLower(symbol)

	for _, d := range nameDenySubstrings {
		if lowerName != "" && strings.Contains(lowerName, d.substr) {
			return Outcome{Accept: false, Reason: d.reason}
		}
		if lowerSymbol != "" && strings.Contains(lowerSymbol, d.substr) {
			return Outcome{Accept: false, Reason: d.reason}
		}
	}

	return accepted
}
