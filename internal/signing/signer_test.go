package signing

import (
	"context"
	"errors"
	"strings"
	"testing"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/ledger"
)

// Genesis account of every fresh ledger, derived from "masterpassphrase".
const (
	genesisSeed      = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	genesisAddress   = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	genesisPublicKey = "0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020"
	recipient        = "rN7n7otQDd6FczFgLdSqtcsAUxDkw6fzRH"
)

func payment(account string) ledger.Payment {
	return ledger.Payment{
		Account:     account,
		Destination: recipient,
		Amount:      decimal.RequireFromString("10"),
		Fee:         decimal.RequireFromString("0.000012"),
		Sequence:    3,
	}
}

func genesisSigner(t *testing.T) *LocalSigner {
	t.Helper()
	signer, err := NewLocalSigner(genesisAddress, genesisSeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return signer
}

func TestNewLocalSignerDerivesGenesisKeys(t *testing.T) {
	signer := genesisSigner(t)
	if signer.Address() != genesisAddress {
		t.Fatalf("address = %s", signer.Address())
	}
	if signer.PublicKey() != genesisPublicKey {
		t.Fatalf("public key = %s", signer.PublicKey())
	}
}

func TestNewLocalSignerRejectsSeedForAnotherAddress(t *testing.T) {
	_, err := NewLocalSigner(recipient, genesisSeed)
	if !errors.Is(err, ErrSeedMismatch) {
		t.Fatalf("expected ErrSeedMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), genesisAddress) {
		t.Fatalf("error should name the derived address: %v", err)
	}
}

func TestNewLocalSignerRejectsBadSeeds(t *testing.T) {
	for _, seed := range []string{"", "  ", "not-a-seed"} {
		if _, err := NewLocalSigner(genesisAddress, seed); err == nil {
			t.Fatalf("seed %q: expected error", seed)
		}
	}
}

func TestSignProducesBinaryBlob(t *testing.T) {
	signer := genesisSigner(t)
	blob, err := signer.Sign(context.Background(), payment(genesisAddress))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := signer.Verify(blob); err != nil {
		t.Fatalf("verify: %v", err)
	}
	tx, err := binarycodec.Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx["TransactionType"] != "Payment" || tx["Account"] != genesisAddress || tx["Destination"] != recipient {
		t.Fatalf("unexpected tx: %#v", tx)
	}
	if tx["Amount"] != "10000000" || tx["Fee"] != "12" {
		t.Fatalf("unexpected amounts: %#v", tx)
	}
	if pub, _ := tx["SigningPubKey"].(string); !strings.EqualFold(pub, genesisPublicKey) {
		t.Fatalf("signing key = %v", tx["SigningPubKey"])
	}
	if sig, _ := tx["TxnSignature"].(string); sig == "" {
		t.Fatal("missing TxnSignature")
	}
}

func TestSignRejectsForeignAccount(t *testing.T) {
	signer := genesisSigner(t)
	if _, err := signer.Sign(context.Background(), payment(recipient)); !errors.Is(err, ErrWrongAccount) {
		t.Fatalf("expected ErrWrongAccount, got %v", err)
	}
}

func TestSignStopsOnCancelledContext(t *testing.T) {
	signer := genesisSigner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := signer.Sign(ctx, payment(genesisAddress)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	signer := genesisSigner(t)
	blob, err := signer.Sign(context.Background(), payment(genesisAddress))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx, err := binarycodec.Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tx["Amount"] = "99000000"
	tampered, err := binarycodec.Encode(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := signer.Verify(tampered); err == nil {
		t.Fatal("expected tampered blob to fail verification")
	}
}
