package metadata

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// OnChainMetadata is the parsed Metaplex token metadata record.
type OnChainMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// MintAccount is the parsed SPL Token mint record.
type MintAccount struct {
	Decimals int
	Supply   float64 // adjusted for decimals
}

// ParseMintAccount parses SPL Token Mint account data.
// SPL Token Mint layout (82 bytes):
// - mintAuthority: Option<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: Option<Pubkey> (36 bytes: 4 + 32)
func ParseMintAccount(data string) (*MintAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}

	if len(decoded) < 82 {
		return nil, fmt.Errorf("mint data too short: %d", len(decoded))
	}

	// supply at offset 36 (after mintAuthority option)
	supply := binary.LittleEndian.Uint64(decoded[36:44])

	// decimals at offset 44
	decimals := int(decoded[44])

	return &MintAccount{
		Decimals: decimals,
		Supply:   float64(supply) / math.Pow(10, float64(decimals)),
	}, nil
}

// ParseMetadataAccount parses Metaplex Token Metadata account data.
// Layout:
// - key: u8 (1 byte, 4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name: String (4-byte length + data, max 32 chars)
// - symbol: String (4-byte length + data, max 10 chars)
// - uri: String (4-byte length + data, max 200 chars)
// Parsing fails closed: any out-of-bounds or malformed layout returns an
// error, never a partial record or a panic.
func ParseMetadataAccount(data string) (*OnChainMetadata, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if len(decoded) < 66 {
		return nil, fmt.Errorf("metadata too short: %d", len(decoded))
	}

	if decoded[0] != 4 { // MetadataV1 key
		return nil, fmt.Errorf("unexpected metadata key %d", decoded[0])
	}

	// Skip: key(1) + updateAuthority(32) + mint(32) = 65 bytes
	offset := 65

	name, offset, err := readBorshString(decoded, offset, 100)
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}

	symbol, offset, err := readBorshString(decoded, offset, 20)
	if err != nil {
		return nil, fmt.Errorf("read symbol: %w", err)
	}

	uri, _, err := readBorshString(decoded, offset, 300)
	if err != nil {
		return nil, fmt.Errorf("read uri: %w", err)
	}

	return &OnChainMetadata{
		Name:   name,
		Symbol: symbol,
		URI:    uri,
	}, nil
}

// readBorshString reads a 4-byte-length-prefixed string, trimming the NUL
// padding Metaplex pads fixed-size fields with.
func readBorshString(data []byte, offset, maxLen int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, fmt.Errorf("length prefix out of bounds at %d", offset)
	}
	strLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	if strLen > maxLen {
		return "", 0, fmt.Errorf("string length %d exceeds %d", strLen, maxLen)
	}
	if offset+strLen > len(data) {
		return "", 0, fmt.Errorf("string body out of bounds at %d", offset)
	}

	s := strings.TrimRight(string(data[offset:offset+strLen]), "\x00")
	return strings.TrimSpace(s), offset + strLen, nil
}
