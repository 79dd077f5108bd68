// Package thresholdenc implements threshold encryption of artifact payloads:
// a fresh data key encrypts the payload with AES-256-GCM, the key is split
// with Shamir secret sharing, and the shares are escrowed to independent key
// servers sealed under HPKE. Decryption requires a signed session proof, an
// authorization token, and a threshold quorum of released shares.
package thresholdenc

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/attestry/provenance-backend/interfaces"
	"golang.org/x/crypto/hkdf"
)

// identityInfo domain-separates key-identity derivation from every other HKDF
// use of the same inputs.
const identityInfo = "attestry/key-identity/v1"

// DeriveIdentity derives the 32-byte key identity binding an owner address to
// a per-encryption nonce. The derivation is HKDF-SHA256 with the nonce as
// input keying material and the owner address as salt, so two encryptions by
// the same owner never share an identity and two owners never collide on one.
func DeriveIdentity(owner interfaces.OwnerAddress, nonce []byte) (interfaces.KeyID, error) {
	if owner.IsZero() {
		return interfaces.KeyID{}, errors.New("zero owner address")
	}
	if len(nonce) == 0 {
		return interfaces.KeyID{}, errors.New("empty identity nonce")
	}

	reader := hkdf.New(sha256.New, nonce, owner.Bytes(), []byte(identityInfo))
	raw := make([]byte, 32)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return interfaces.KeyID{}, fmt.Errorf("could not derive key identity: %w", err)
	}
	return interfaces.NewKeyIDFromBytes(raw)
}
