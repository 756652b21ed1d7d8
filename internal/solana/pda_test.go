package solana

import (
	"testing"

	"github.com/mr-tron/base58"
)

// Any valid 32-byte base58 key works as a mint for derivation tests.
const testMint = "So11111111111111111111111111111111111111112"

func TestMetadataPDA_Deterministic(t *testing.T) {
	first, err := MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	second, err := MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	if first != second {
		t.Errorf("derivation not deterministic: %s vs %s", first, second)
	}

	decoded, err := base58.Decode(first)
	if err != nil {
		t.Fatalf("decode PDA: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("expected 32-byte address, got %d bytes", len(decoded))
	}
}

func TestMetadataPDA_OffCurve(t *testing.T) {
	pda, err := MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	decoded, err := base58.Decode(pda)
	if err != nil {
		t.Fatalf("decode PDA: %v", err)
	}

	if isOnCurve(decoded) {
		t.Error("derived PDA lies on the ed25519 curve")
	}
}

func TestMetadataPDA_InvalidMint(t *testing.T) {
	if _, err := MetadataPDA("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid mint")
	}

	// Valid base58 but wrong length.
	if _, err := MetadataPDA("abc"); err == nil {
		t.Error("expected error for short mint")
	}
}

func TestBondingCurvePDA_DiffersFromMetadataPDA(t *testing.T) {
	meta, err := MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	curve, err := BondingCurvePDA(testMint)
	if err != nil {
		t.Fatalf("BondingCurvePDA: %v", err)
	}

	if meta == curve {
		t.Error("metadata and bonding curve PDAs should differ")
	}
}

func TestDerivePDA_SeedOrderMatters(t *testing.T) {
	program, _ := base58.Decode(MetadataProgramID)
	mint, _ := base58.Decode(testMint)

	a, err := DerivePDA([][]byte{[]byte("metadata"), program, mint}, program)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}

	b, err := DerivePDA([][]byte{mint, program, []byte("metadata")}, program)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}

	if a == b {
		t.Error("different seed orders produced the same address")
	}
}
