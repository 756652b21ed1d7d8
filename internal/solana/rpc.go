package solana

import (
	"context"
	"encoding/json"
)

// Well-known program IDs.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	MetadataProgramID  = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	PumpFunProgramID   = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// RPCClient defines the Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature with parsed
	// instructions. Returns nil when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenLargestAccounts retrieves the largest token accounts for a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetTokenAccountOwners resolves token account addresses to their owner
	// wallets. Accounts that do not exist are absent from the result.
	GetTokenAccountOwners(ctx context.Context, accounts []string) (map[string]string, error)
}

// Transaction represents a Solana transaction with jsonParsed instructions.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	InnerInstructions []InnerInstructionSet
}

// InnerInstructionSet groups inner instructions emitted by one top-level
// instruction.
type InnerInstructionSet struct {
	Index        int
	Instructions []Instruction
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction is a single instruction in jsonParsed form. Parsed carries the
// program-specific payload; it is nil for programs the node cannot decode.
type Instruction struct {
	Program   string
	ProgramID string
	Parsed    json.RawMessage
}

// Failed reports whether the transaction errored on chain.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// AllInstructions returns top-level instructions followed by all inner
// instructions, in execution order.
func (t *Transaction) AllInstructions() []Instruction {
	if t.Message == nil {
		return nil
	}
	out := make([]Instruction, 0, len(t.Message.Instructions))
	out = append(out, t.Message.Instructions...)
	if t.Meta != nil {
		for _, set := range t.Meta.InnerInstructions {
			out = append(out, set.Instructions...)
		}
	}
	return out
}
