// Package interfaces defines the core types and collaborator contracts for the
// provenance certificate system. It provides the contract between components
// without implementation details.
package interfaces

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DigestAlgo identifies the only digest algorithm certificates carry.
const DigestAlgo = "sha256"

// DigestStringLen is the length of the textual digest form "sha256:<64 hex>".
const DigestStringLen = len(DigestAlgo) + 1 + 64

// Digest is a 32-byte SHA-256 content digest. The textual form is
// "sha256:<lowercase hex>" and round-trips losslessly to bytes.
type Digest [32]byte

// NewDigestFromBytes creates a digest from a raw 32-byte slice.
func NewDigestFromBytes(source []byte) (Digest, error) {
	if len(source) != 32 {
		return Digest{}, errors.New("invalid digest length: must be 32 bytes")
	}

	var d Digest
	copy(d[:], source)
	return d, nil
}

// NewDigestFromString parses the textual form "sha256:<64 hex chars>".
func NewDigestFromString(source string) (Digest, error) {
	if len(source) != DigestStringLen {
		return Digest{}, fmt.Errorf("invalid digest string length %d, expected %d", len(source), DigestStringLen)
	}

	algo, hexPart, found := strings.Cut(source, ":")
	if !found || algo != DigestAlgo {
		return Digest{}, fmt.Errorf("unsupported digest algorithm tag in %q", source)
	}
	if strings.ToLower(hexPart) != hexPart {
		return Digest{}, errors.New("digest hex must be lowercase")
	}

	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest hex: %w", err)
	}

	return NewDigestFromBytes(raw)
}

// String returns the tagged textual form "sha256:<hex>".
func (d Digest) String() string {
	return DigestAlgo + ":" + hex.EncodeToString(d[:])
}

// Hex returns the bare lowercase hex encoding.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns the raw 32-byte digest.
func (d Digest) Bytes() []byte {
	return d[:]
}

// Equal compares two digests byte-exact.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// MarshalText implements encoding.TextMarshaler using the tagged form.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := NewDigestFromString(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MerkleRoot is the 32-byte root of a dataset Merkle tree. The textual form
// is "0x<lowercase hex>".
type MerkleRoot [32]byte

// NewMerkleRootFromHex parses "0x<64 hex chars>".
func NewMerkleRootFromHex(source string) (MerkleRoot, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return MerkleRoot{}, errors.New("invalid merkle root length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return MerkleRoot{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var root MerkleRoot
	copy(root[:], raw)
	return root, nil
}

// String returns the "0x"-prefixed hex representation.
func (r MerkleRoot) String() string {
	return "0x" + hex.EncodeToString(r[:])
}

// Bytes returns the raw 32-byte root.
func (r MerkleRoot) Bytes() []byte {
	return r[:]
}

// Equal compares two roots for equality.
func (r MerkleRoot) Equal(other MerkleRoot) bool {
	return r == other
}

// MarshalText implements encoding.TextMarshaler.
func (r MerkleRoot) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *MerkleRoot) UnmarshalText(text []byte) error {
	parsed, err := NewMerkleRootFromHex(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// OwnerAddress is a 20-byte identity of a certificate author or decryption
// requester, rendered as "0x<40 hex chars>".
type OwnerAddress [20]byte

// NewOwnerAddressFromBytes creates an owner address from a raw 20-byte slice.
func NewOwnerAddressFromBytes(source []byte) (OwnerAddress, error) {
	if len(source) != 20 {
		return OwnerAddress{}, errors.New("invalid address length: must be 20 bytes")
	}

	var addr OwnerAddress
	copy(addr[:], source)
	return addr, nil
}

// NewOwnerAddressFromHex creates an owner address from a hex string, with or
// without the 0x prefix.
func NewOwnerAddressFromHex(source string) (OwnerAddress, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 40 {
		return OwnerAddress{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return OwnerAddress{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewOwnerAddressFromBytes(raw)
}

// String returns the "0x"-prefixed hex representation.
func (addr OwnerAddress) String() string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Bytes returns the raw 20-byte address.
func (addr OwnerAddress) Bytes() []byte {
	return addr[:]
}

// Equal compares two owner addresses.
func (addr OwnerAddress) Equal(other OwnerAddress) bool {
	return addr == other
}

// IsZero reports whether the address is all zero bytes.
func (addr OwnerAddress) IsZero() bool {
	return addr == OwnerAddress{}
}

// MarshalText implements encoding.TextMarshaler.
func (addr OwnerAddress) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (addr *OwnerAddress) UnmarshalText(text []byte) error {
	parsed, err := NewOwnerAddressFromHex(string(text))
	if err != nil {
		return err
	}
	*addr = parsed
	return nil
}

// KeyIDLen is the byte length of a key identity.
const KeyIDLen = 32

// KeyID is the derived encryption identity binding an owner address and a
// per-encryption nonce. Key servers authorize share release against it.
type KeyID [KeyIDLen]byte

// NewKeyIDFromBytes creates a key identity from a raw 32-byte slice.
func NewKeyIDFromBytes(source []byte) (KeyID, error) {
	if len(source) != KeyIDLen {
		return KeyID{}, errors.New("invalid key id length: must be 32 bytes")
	}

	var id KeyID
	copy(id[:], source)
	return id, nil
}

// NewKeyIDFromHex creates a key identity from a hex string, with or without
// the 0x prefix.
func NewKeyIDFromHex(source string) (KeyID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return KeyID{}, errors.New("invalid key id length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return KeyID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewKeyIDFromBytes(raw)
}

// String returns the "0x"-prefixed hex representation.
func (id KeyID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte identity.
func (id KeyID) Bytes() []byte {
	return id[:]
}

// Equal compares two key identities.
func (id KeyID) Equal(other KeyID) bool {
	return bytes.Equal(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id KeyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *KeyID) UnmarshalText(text []byte) error {
	parsed, err := NewKeyIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
