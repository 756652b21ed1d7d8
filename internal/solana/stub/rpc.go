package stub

import (
	"context"
	"errors"

	"solana-token-catalog/internal/solana"
)

// ErrNotFound is returned when a record is missing from the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Transactions    map[string]*solana.Transaction
	Accounts        map[string]*solana.AccountInfo
	LargestAccounts map[string][]solana.TokenAccountBalance
	Owners          map[string]string // token account -> owner wallet

	// Errs forces an error for a given transaction signature or pubkey.
	Errs map[string]error

	// GetTransactionCalls counts GetTransaction invocations per signature.
	GetTransactionCalls map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:        make(map[string]*solana.Transaction),
		Accounts:            make(map[string]*solana.AccountInfo),
		LargestAccounts:     make(map[string][]solana.TokenAccountBalance),
		Owners:              make(map[string]string),
		Errs:                make(map[string]error),
		GetTransactionCalls: make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
// Unknown signatures return (nil, nil) like a node that has not seen the
// transaction yet.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.GetTransactionCalls[signature]++
	if err, ok := c.Errs[signature]; ok {
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetAccountInfo retrieves account info from the stub store.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err, ok := c.Errs[pubkey]; ok {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetTokenLargestAccounts retrieves balances from the stub store.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if err, ok := c.Errs[mint]; ok {
		return nil, err
	}
	return c.LargestAccounts[mint], nil
}

// GetTokenAccountOwners resolves owners from the stub store.
func (c *RPCClient) GetTokenAccountOwners(_ context.Context, accounts []string) (map[string]string, error) {
	owners := make(map[string]string)
	for _, acc := range accounts {
		if owner, ok := c.Owners[acc]; ok {
			owners[acc] = owner
		}
	}
	return owners, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.Accounts[pubkey] = info
}
