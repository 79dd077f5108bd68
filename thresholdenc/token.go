package thresholdenc

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/ethereum/go-ethereum/rlp"
)

// AuthorizationToken is the transaction-shaped authorization a requester
// submits alongside a session proof. The Data field carries the key identity
// the token authorizes, binding each token to exactly one decryption request.
// Tokens are RLP-encoded on the wire.
type AuthorizationToken struct {
	Sender   interfaces.OwnerAddress
	Nonce    uint64
	GasLimit uint64
	To       interfaces.OwnerAddress
	Value    *big.Int
	Data     []byte
}

// NewAuthorizationToken builds a token authorizing the sender to request
// shares for the given key identity.
func NewAuthorizationToken(sender interfaces.OwnerAddress, keyID interfaces.KeyID) *AuthorizationToken {
	return &AuthorizationToken{
		Sender: sender,
		Value:  new(big.Int),
		Data:   keyID.Bytes(),
	}
}

// Encode serializes the token with RLP.
func (t *AuthorizationToken) Encode() ([]byte, error) {
	if t.Value == nil {
		t.Value = new(big.Int)
	}
	raw, err := rlp.EncodeToBytes(t)
	if err != nil {
		return nil, fmt.Errorf("could not encode authorization token: %w", err)
	}
	return raw, nil
}

// DecodeToken parses an RLP-encoded authorization token.
func DecodeToken(raw []byte) (*AuthorizationToken, error) {
	var token AuthorizationToken
	if err := rlp.DecodeBytes(raw, &token); err != nil {
		return nil, fmt.Errorf("malformed authorization token: %w", err)
	}
	return &token, nil
}

// AuthorizesKey reports whether the token's Data field names the given key
// identity.
func (t *AuthorizationToken) AuthorizesKey(keyID interfaces.KeyID) bool {
	return bytes.Equal(t.Data, keyID.Bytes())
}
