package thresholdenc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/signature"
	"github.com/google/uuid"
)

// challengePrefix version-tags session challenges so old proofs cannot be
// replayed against a future challenge format.
const challengePrefix = "attestry/session/v1"

// DefaultSessionTTL bounds how long a session proof stays usable.
const DefaultSessionTTL = 30 * time.Minute

// BuildChallenge assembles the canonical challenge string a requester signs
// to open a decryption session. The requester address and expiry are embedded
// so key servers can validate the proof statelessly.
func BuildChallenge(requester interfaces.OwnerAddress, expiresAt int64, sessionNonce string) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d|%s", challengePrefix, requester.String(), expiresAt, sessionNonce))
}

// ParseChallenge extracts the requester address and expiry from a challenge.
// Key servers cross-check these against the enclosing session proof.
func ParseChallenge(challenge []byte) (interfaces.OwnerAddress, int64, error) {
	parts := strings.Split(string(challenge), "|")
	if len(parts) != 4 || parts[0] != challengePrefix {
		return interfaces.OwnerAddress{}, 0, fmt.Errorf("malformed session challenge")
	}

	requester, err := interfaces.NewOwnerAddressFromHex(parts[1])
	if err != nil {
		return interfaces.OwnerAddress{}, 0, fmt.Errorf("invalid requester in challenge: %w", err)
	}
	expiresAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return interfaces.OwnerAddress{}, 0, fmt.Errorf("invalid expiry in challenge: %w", err)
	}
	return requester, expiresAt, nil
}

// EstablishSession builds a fresh challenge and has the external signer sign
// it, producing a proof that the requester controls the claimed identity. A
// non-positive ttl selects the default.
func EstablishSession(ctx context.Context, signer interfaces.ExternalSigner, ttl time.Duration) (interfaces.SessionProof, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	requester, err := signature.AddressForPublicKey(signer.Scheme(), signer.PublicKey())
	if err != nil {
		return interfaces.SessionProof{}, fmt.Errorf("could not derive requester identity: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	challenge := BuildChallenge(requester, expiresAt, uuid.NewString())

	sig, err := signer.Sign(ctx, challenge)
	if err != nil {
		return interfaces.SessionProof{}, fmt.Errorf("%w: %v", interfaces.ErrSignerUnavailable, err)
	}

	return interfaces.SessionProof{
		Requester: requester,
		Scheme:    signer.Scheme(),
		PublicKey: signer.PublicKey(),
		Challenge: challenge,
		Signature: sig,
		ExpiresAt: expiresAt,
	}, nil
}
