// Package signing holds the platform's custodial signer.
package signing

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"
	"github.com/Peersyst/xrpl-go/keypairs"

	"ledgerpay/internal/ledger"
)

var (
	ErrWrongAccount = errors.New("payment account does not match signer")
	ErrSeedMismatch = errors.New("seed does not derive the configured address")
)

// LocalSigner signs payments for the platform address with the key pair
// derived from its family seed. The seed never leaves the process.
type LocalSigner struct {
	address    string
	publicKey  string
	privateKey string
}

// NewLocalSigner derives the key pair from seed (an "s..." family seed,
// secp256k1 or ed25519) and checks it controls address.
func NewLocalSigner(address, seed string) (*LocalSigner, error) {
	address = strings.TrimSpace(address)
	seed = strings.TrimSpace(seed)
	if address == "" {
		return nil, errors.New("signer address is empty")
	}
	if seed == "" {
		return nil, errors.New("signer seed is empty")
	}
	privateKey, publicKey, err := keypairs.DeriveKeypair(seed, false)
	if err != nil {
		return nil, fmt.Errorf("derive key pair: %w", err)
	}
	derived, err := keypairs.DeriveClassicAddress(publicKey)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	if derived != address {
		return nil, fmt.Errorf("%w: seed controls %s", ErrSeedMismatch, derived)
	}
	return &LocalSigner{
		address:    address,
		publicKey:  strings.ToUpper(publicKey),
		privateKey: privateKey,
	}, nil
}

func (s *LocalSigner) Address() string {
	return s.address
}

func (s *LocalSigner) PublicKey() string {
	return s.publicKey
}

// Sign returns the canonical binary blob, hex encoded, for the ledger's
// submit call.
func (s *LocalSigner) Sign(ctx context.Context, payment ledger.Payment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if payment.Account != s.address {
		return "", ErrWrongAccount
	}
	tx, err := payment.TxJSON()
	if err != nil {
		return "", err
	}
	tx["SigningPubKey"] = s.publicKey
	message, err := signingMessage(tx)
	if err != nil {
		return "", err
	}
	signature, err := keypairs.Sign(message, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	tx["TxnSignature"] = strings.ToUpper(signature)
	blob, err := binarycodec.Encode(tx)
	if err != nil {
		return "", fmt.Errorf("encode signed tx: %w", err)
	}
	return strings.ToUpper(blob), nil
}

// Verify checks that blob carries a valid signature by this signer.
func (s *LocalSigner) Verify(blob string) error {
	tx, err := binarycodec.Decode(blob)
	if err != nil {
		return fmt.Errorf("decode blob: %w", err)
	}
	signature, _ := tx["TxnSignature"].(string)
	if signature == "" {
		return errors.New("blob is not signed")
	}
	if pub, _ := tx["SigningPubKey"].(string); !strings.EqualFold(pub, s.publicKey) {
		return errors.New("blob signed by another key")
	}
	delete(tx, "TxnSignature")
	message, err := signingMessage(tx)
	if err != nil {
		return err
	}
	ok, err := keypairs.Validate(message, s.publicKey, signature)
	if err != nil {
		return fmt.Errorf("validate signature: %w", err)
	}
	if !ok {
		return errors.New("signature mismatch")
	}
	return nil
}

// signingMessage is the prefixed single-signing serialization of tx, as raw
// bytes in a string, which is the form keypairs signs.
func signingMessage(tx map[string]any) (string, error) {
	encoded, err := binarycodec.EncodeForSigning(tx)
	if err != nil {
		return "", fmt.Errorf("encode for signing: %w", err)
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("encode for signing: %w", err)
	}
	return string(raw), nil
}
