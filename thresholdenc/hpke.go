package thresholdenc

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
)

// HPKE suite used for sealing escrowed shares to key-server public keys.
const (
	shareKEM  = hpke.KEM_X25519_HKDF_SHA256
	shareKDF  = hpke.KDF_HKDF_SHA256
	shareAEAD = hpke.AEAD_AES256GCM
)

var shareSuite = hpke.NewSuite(shareKEM, shareKDF, shareAEAD)

// GenerateShareKeypair creates a fresh key-server encryption keypair.
func GenerateShareKeypair() (kem.PublicKey, kem.PrivateKey, error) {
	return shareKEM.Scheme().GenerateKeyPair()
}

// MarshalSharePublicKey serializes a server public key for the wire.
func MarshalSharePublicKey(pub kem.PublicKey) ([]byte, error) {
	return pub.MarshalBinary()
}

// UnmarshalSharePublicKey parses a server public key off the wire.
func UnmarshalSharePublicKey(raw []byte) (kem.PublicKey, error) {
	return shareKEM.Scheme().UnmarshalBinaryPublicKey(raw)
}

// SealShare seals one Shamir share to a key server's public key, bound to the
// key identity via the HPKE info string so a sealed share cannot be replayed
// under a different identity.
//
// Output layout: [2-byte big-endian encapsulation length][encapsulated key]
// [AEAD ciphertext].
func SealShare(serverPub []byte, share []byte, keyID interfaces.KeyID) ([]byte, error) {
	pub, err := UnmarshalSharePublicKey(serverPub)
	if err != nil {
		return nil, fmt.Errorf("invalid server public key: %w", err)
	}

	sender, err := shareSuite.NewSender(pub, keyID.Bytes())
	if err != nil {
		return nil, fmt.Errorf("could not create hpke sender: %w", err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("hpke setup failed: %w", err)
	}
	ct, err := sealer.Seal(share, nil)
	if err != nil {
		return nil, fmt.Errorf("could not seal share: %w", err)
	}

	out := make([]byte, 2+len(enc)+len(ct))
	binary.BigEndian.PutUint16(out[:2], uint16(len(enc)))
	copy(out[2:], enc)
	copy(out[2+len(enc):], ct)
	return out, nil
}

// OpenShare unseals an escrowed share with the server's private key. The key
// identity must match the one the share was sealed under.
func OpenShare(serverPriv kem.PrivateKey, sealed []byte, keyID interfaces.KeyID) ([]byte, error) {
	if len(sealed) < 2 {
		return nil, errors.New("sealed share too short")
	}
	encLen := int(binary.BigEndian.Uint16(sealed[:2]))
	if len(sealed) < 2+encLen {
		return nil, errors.New("sealed share truncated")
	}
	enc := sealed[2 : 2+encLen]
	ct := sealed[2+encLen:]

	receiver, err := shareSuite.NewReceiver(serverPriv, keyID.Bytes())
	if err != nil {
		return nil, fmt.Errorf("could not create hpke receiver: %w", err)
	}
	opener, err := receiver.Setup(enc)
	if err != nil {
		return nil, fmt.Errorf("hpke setup failed: %w", err)
	}
	share, err := opener.Open(ct, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open share: %w", err)
	}
	return share, nil
}
