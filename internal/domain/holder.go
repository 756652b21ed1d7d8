package domain

// HolderBalance maps an owner address to its balance for one mint.
// Holder rows are replaced wholesale per indexing pass: upstream balance
// snapshots are point-in-time, so partial patching would produce an
// inconsistent view.
type HolderBalance struct {
	Mint      string  // FK to tokens
	Owner     string  // owner address
	Balance   float64 // balance adjusted for decimals
	UpdatedAt int64   // indexing pass timestamp (ms)
}
