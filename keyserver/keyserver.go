// Package keyserver implements one key-issuing service of the threshold
// encryption protocol. Shares arrive HPKE-sealed to this server's encryption
// key and are released only to requesters that present a valid session proof
// and an authorization token passing the escrowed access policy.
package keyserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/signature"
	"github.com/attestry/provenance-backend/thresholdenc"
	"github.com/cloudflare/circl/kem"
)

type escrowedShare struct {
	sealed []byte
	owner  interfaces.OwnerAddress
	policy interfaces.AccessPolicy
}

// Server holds escrowed shares in memory, keyed by key identity. It
// implements the key-server contract used by the encryption protocol and is
// wrapped by the HTTP handler for remote deployment.
type Server struct {
	name string
	priv kem.PrivateKey
	pub  []byte
	log  *slog.Logger

	mu     sync.RWMutex
	shares map[interfaces.KeyID]escrowedShare

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates a server with a fresh encryption keypair.
func New(name string, log *slog.Logger) (*Server, error) {
	pub, priv, err := thresholdenc.GenerateShareKeypair()
	if err != nil {
		return nil, fmt.Errorf("could not generate server keypair: %w", err)
	}
	pubRaw, err := thresholdenc.MarshalSharePublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("could not marshal server public key: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		name:   name,
		priv:   priv,
		pub:    pubRaw,
		log:    log,
		shares: make(map[interfaces.KeyID]escrowedShare),
		now:    time.Now,
	}, nil
}

// Name returns the server identifier.
func (s *Server) Name() string {
	return s.name
}

// EncryptionKey returns the public key shares must be sealed to.
func (s *Server) EncryptionKey(_ context.Context) ([]byte, error) {
	return s.pub, nil
}

// EscrowShare stores a sealed share under the key identity together with the
// policy this server will enforce at release time. Re-escrow under an
// existing identity is rejected; policies are immutable once set.
func (s *Server) EscrowShare(_ context.Context, keyID interfaces.KeyID, sealedShare []byte, owner interfaces.OwnerAddress, policy interfaces.AccessPolicy) error {
	if len(sealedShare) == 0 {
		return fmt.Errorf("empty sealed share")
	}
	if !policy.Validate() {
		return fmt.Errorf("invalid access policy mode %q", policy.Mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shares[keyID]; exists {
		return fmt.Errorf("share already escrowed for key %s", keyID)
	}
	s.shares[keyID] = escrowedShare{
		sealed: append([]byte(nil), sealedShare...),
		owner:  owner,
		policy: policy,
	}

	s.log.Info("escrowed key share",
		slog.String("server", s.name),
		slog.String("key_id", keyID.String()),
		slog.String("owner", owner.String()),
		slog.String("policy", policy.Mode))
	return nil
}

// RequestKeyShare validates the session proof and authorization token, checks
// the requester against the escrowed policy, and releases the unsealed share.
//
// Validation order matters for error semantics: expiry first, then proof
// authenticity, then authorization. A requester with an expired session gets
// ErrSessionExpired even when they would also fail the policy check.
func (s *Server) RequestKeyShare(_ context.Context, keyID interfaces.KeyID, token []byte, session interfaces.SessionProof) ([]byte, error) {
	if err := s.validateSession(session); err != nil {
		return nil, err
	}

	authz, err := thresholdenc.DecodeToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrAccessDenied, err)
	}
	if !authz.Sender.Equal(session.Requester) {
		return nil, fmt.Errorf("%w: token sender does not match session requester", interfaces.ErrAccessDenied)
	}
	if !authz.AuthorizesKey(keyID) {
		return nil, fmt.Errorf("%w: token does not authorize this key", interfaces.ErrAccessDenied)
	}

	s.mu.RLock()
	entry, found := s.shares[keyID]
	s.mu.RUnlock()
	if !found {
		return nil, interfaces.ErrShareNotFound
	}

	if !entry.policy.Allows(entry.owner, session.Requester) {
		s.log.Warn("share release denied by policy",
			slog.String("server", s.name),
			slog.String("key_id", keyID.String()),
			slog.String("requester", session.Requester.String()))
		return nil, interfaces.ErrAccessDenied
	}

	share, err := thresholdenc.OpenShare(s.priv, entry.sealed, keyID)
	if err != nil {
		return nil, fmt.Errorf("could not unseal escrowed share: %w", err)
	}

	s.log.Info("released key share",
		slog.String("server", s.name),
		slog.String("key_id", keyID.String()),
		slog.String("requester", session.Requester.String()))
	return share, nil
}

// validateSession checks expiry, challenge integrity, the signature, and the
// binding between public key and claimed requester identity.
func (s *Server) validateSession(session interfaces.SessionProof) error {
	if s.now().Unix() >= session.ExpiresAt {
		return interfaces.ErrSessionExpired
	}

	challengeRequester, challengeExpiry, err := thresholdenc.ParseChallenge(session.Challenge)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrAccessDenied, err)
	}
	if !challengeRequester.Equal(session.Requester) || challengeExpiry != session.ExpiresAt {
		return fmt.Errorf("%w: challenge does not match session fields", interfaces.ErrAccessDenied)
	}

	if !signature.VerifyMessage(session.Scheme, session.PublicKey, session.Challenge, session.Signature) {
		return fmt.Errorf("%w: invalid session signature", interfaces.ErrAccessDenied)
	}

	signerAddr, err := signature.AddressForPublicKey(session.Scheme, session.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrAccessDenied, err)
	}
	if !signerAddr.Equal(session.Requester) {
		return fmt.Errorf("%w: session key does not speak for requester", interfaces.ErrAccessDenied)
	}
	return nil
}
