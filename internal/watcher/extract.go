package watcher

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"solana-token-catalog/internal/solana"
)

// initializeMintMarker appears in the log output of every mint creation,
// letting the watcher discard unrelated token-program traffic before paying
// for a transaction fetch.
const initializeMintMarker = "Program log: Instruction: InitializeMint"

// Discovery is the mint creation extracted from one transaction.
type Discovery struct {
	Mint     string
	Decimals int
	Supply   *float64 // initial minted supply, adjusted for decimals
	Source   string   // program that created the mint
	OnCurve  bool
	Curve    string // bonding curve account, when OnCurve
}

// hasInitializeMintLog reports whether the notification logs carry a mint
// creation.
func hasInitializeMintLog(logs []string) bool {
	for _, line := range logs {
		if strings.HasPrefix(line, initializeMintMarker) {
			return true
		}
	}
	return false
}

type parsedInstruction struct {
	Type string `json:"type"`
	Info struct {
		Mint     string `json:"mint"`
		Decimals *int   `json:"decimals"`
		Amount   string `json:"amount"`

		TokenAmount *struct {
			Amount   string  `json:"amount"`
			Decimals int     `json:"decimals"`
			UIAmount float64 `json:"uiAmount"`
		} `json:"tokenAmount"`
	} `json:"info"`
}

// extractDiscovery scans a transaction for a mint creation. It walks top-level
// and inner instructions in execution order, so launchpad mints created via
// CPI are found the same way as direct ones. Returns nil when the transaction
// creates no mint.
func extractDiscovery(tx *solana.Transaction) *Discovery {
	if tx == nil || tx.Failed() {
		return nil
	}

	var disc *Discovery
	pumpFun := false

	for _, ix := range tx.AllInstructions() {
		if ix.ProgramID == solana.PumpFunProgramID {
			pumpFun = true
		}
		if ix.Parsed == nil {
			continue
		}
		if ix.ProgramID != solana.TokenProgramID && ix.ProgramID != solana.Token2022ProgramID {
			continue
		}

		var parsed parsedInstruction
		if err := json.Unmarshal(ix.Parsed, &parsed); err != nil {
			continue
		}

		switch parsed.Type {
		case "initializeMint", "initializeMint2":
			if parsed.Info.Mint == "" || parsed.Info.Decimals == nil {
				continue
			}
			disc = &Discovery{
				Mint:     parsed.Info.Mint,
				Decimals: *parsed.Info.Decimals,
				Source:   ix.ProgramID,
			}

		case "mintTo", "mintToChecked":
			if disc == nil || parsed.Info.Mint != disc.Mint {
				continue
			}
			if supply := mintedSupply(&parsed, disc.Decimals); supply != nil {
				disc.Supply = supply
			}
		}
	}

	if disc == nil {
		return nil
	}

	if pumpFun {
		disc.OnCurve = true
		disc.Source = solana.PumpFunProgramID
		if curve, err := solana.BondingCurvePDA(disc.Mint); err == nil {
			disc.Curve = curve
		}
	}

	return disc
}

// mintedSupply converts the minted amount to a decimal-adjusted supply.
// mintToChecked carries a ready-made uiAmount; mintTo only has the raw base
// units.
func mintedSupply(parsed *parsedInstruction, decimals int) *float64 {
	if ta := parsed.Info.TokenAmount; ta != nil && ta.UIAmount > 0 {
		supply := ta.UIAmount
		return &supply
	}
	if parsed.Info.Amount == "" {
		return nil
	}
	raw, err := strconv.ParseFloat(parsed.Info.Amount, 64)
	if err != nil || raw <= 0 {
		return nil
	}
	supply := raw / math.Pow10(decimals)
	return &supply
}
