package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedScheme is returned when a signature scheme is not in the
	// supported enumerated set.
	ErrUnsupportedScheme = errors.New("unsupported signature scheme")

	// ErrQuorumNotReached is returned when fewer than threshold key servers
	// released a share within the timeout.
	ErrQuorumNotReached = errors.New("key share quorum not reached")

	// ErrSessionExpired is returned when the decryption session TTL elapsed
	// before quorum.
	ErrSessionExpired = errors.New("decryption session expired")

	// ErrAccessDenied is returned when key servers reject the requester per
	// the access policy (owner mismatch, not on allowlist).
	ErrAccessDenied = errors.New("access denied by key server policy")

	// ErrShareNotFound is returned when a key server holds no share for the
	// requested key identity.
	ErrShareNotFound = errors.New("key share not found")

	// ErrSignerUnavailable is returned when the external signer cannot be
	// reached or refuses to sign.
	ErrSignerUnavailable = errors.New("external signer unavailable")
)

// ExternalSigner produces detached signatures over opaque byte strings. It is
// the wallet boundary: the protocol never generates, stores, or reads private
// keys. Implementations sign exactly the bytes they are given, which are
// either a canonicalized certificate or a session challenge, never raw file
// content.
type ExternalSigner interface {
	// Scheme returns the signature scheme this signer produces.
	Scheme() SignatureScheme

	// PublicKey returns the signer's raw public key bytes.
	PublicKey() []byte

	// Sign returns a detached signature over message.
	Sign(ctx context.Context, message []byte) ([]byte, error)
}

// SessionProof is a short-lived, signed proof that a requester controls a
// given identity. The challenge binds the requester address and expiry so key
// servers can validate the proof without shared state.
type SessionProof struct {
	Requester OwnerAddress    `json:"requester"`
	Scheme    SignatureScheme `json:"scheme"`
	PublicKey []byte          `json:"public_key"`
	Challenge []byte          `json:"challenge"`
	Signature []byte          `json:"signature"`
	ExpiresAt int64           `json:"expires_at"`
}

// KeyServer is one of N independent key-issuing services. Shares are escrowed
// sealed to the server's encryption key; release requires a valid session
// proof and an authorization token passing the access policy.
type KeyServer interface {
	// Name returns an identifier for logging.
	Name() string

	// EncryptionKey returns the server's public key for sealing escrowed
	// shares.
	EncryptionKey(ctx context.Context) ([]byte, error)

	// EscrowShare stores a sealed key share under the key identity, bound to
	// the access policy the server will enforce at release time.
	EscrowShare(ctx context.Context, keyID KeyID, sealedShare []byte, owner OwnerAddress, policy AccessPolicy) error

	// RequestKeyShare validates the token and session proof against policy
	// and releases the share on success. Policy rejection surfaces
	// ErrAccessDenied; an elapsed session surfaces ErrSessionExpired.
	RequestKeyShare(ctx context.Context, keyID KeyID, token []byte, session SessionProof) ([]byte, error)
}
