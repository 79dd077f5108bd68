package signature

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/ethereum/go-ethereum/crypto"
)

// ED25519Signer is an in-process signer satisfying the external-signer
// contract. Used by the CLI and tests; production issuance talks to a wallet.
type ED25519Signer struct {
	priv ed25519.PrivateKey
}

// NewED25519Signer wraps an existing private key.
func NewED25519Signer(priv ed25519.PrivateKey) *ED25519Signer {
	return &ED25519Signer{priv: priv}
}

// GenerateED25519Signer creates a signer with a fresh random key.
func GenerateED25519Signer() (*ED25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("could not generate ed25519 key: %w", err)
	}
	return &ED25519Signer{priv: priv}, nil
}

// Scheme returns the signature scheme.
func (s *ED25519Signer) Scheme() interfaces.SignatureScheme {
	return interfaces.SchemeED25519
}

// PublicKey returns the raw 32-byte public key.
func (s *ED25519Signer) PublicKey() []byte {
	return []byte(s.priv.Public().(ed25519.PublicKey))
}

// Address returns the owner identity this signer speaks for.
func (s *ED25519Signer) Address() interfaces.OwnerAddress {
	addr, _ := AddressForPublicKey(interfaces.SchemeED25519, s.PublicKey())
	return addr
}

// Sign produces a detached ed25519 signature over the message bytes.
func (s *ED25519Signer) Sign(_ context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

// SECP256K1Signer signs with an secp256k1 key, producing 65-byte
// [R || S || V] signatures over the keccak256 of the message.
type SECP256K1Signer struct {
	priv *ecdsa.PrivateKey
}

// NewSECP256K1Signer wraps an existing private key.
func NewSECP256K1Signer(priv *ecdsa.PrivateKey) *SECP256K1Signer {
	return &SECP256K1Signer{priv: priv}
}

// NewSECP256K1SignerFromHex parses a hex-encoded private key.
func NewSECP256K1SignerFromHex(keyHex string) (*SECP256K1Signer, error) {
	priv, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 key: %w", err)
	}
	return &SECP256K1Signer{priv: priv}, nil
}

// GenerateSECP256K1Signer creates a signer with a fresh random key.
func GenerateSECP256K1Signer() (*SECP256K1Signer, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate secp256k1 key: %w", err)
	}
	return &SECP256K1Signer{priv: priv}, nil
}

// Scheme returns the signature scheme.
func (s *SECP256K1Signer) Scheme() interfaces.SignatureScheme {
	return interfaces.SchemeSECP256K1
}

// PublicKey returns the 65-byte uncompressed public key.
func (s *SECP256K1Signer) PublicKey() []byte {
	return crypto.FromECDSAPub(&s.priv.PublicKey)
}

// Address returns the Ethereum address of the key.
func (s *SECP256K1Signer) Address() interfaces.OwnerAddress {
	addr, _ := interfaces.NewOwnerAddressFromBytes(crypto.PubkeyToAddress(s.priv.PublicKey).Bytes())
	return addr
}

// Sign produces a recoverable signature over keccak256(message).
func (s *SECP256K1Signer) Sign(_ context.Context, message []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256(message), s.priv)
}
