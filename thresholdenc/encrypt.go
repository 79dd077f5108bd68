package thresholdenc

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/shamir"
)

// PackageID names the encryption scheme recorded in certificate annexes, so
// future scheme revisions can coexist with already-issued certificates.
const PackageID = "attestry/threshold-aes-gcm/v1"

const (
	dataKeySize  = 32
	gcmNonceSize = 12
	headerSize   = interfaces.KeyIDLen + gcmNonceSize

	// DefaultShareTimeout bounds each key-server round trip during quorum
	// collection.
	DefaultShareTimeout = 10 * time.Second
)

// Config carries the protocol collaborators and tuning knobs.
type Config struct {
	Threshold    int
	KeyServers   []interfaces.KeyServer
	SessionTTL   time.Duration
	ShareTimeout time.Duration
	Log          *slog.Logger
}

// Protocol drives threshold encryption and quorum decryption against a fixed
// set of key servers.
type Protocol struct {
	threshold    int
	servers      []interfaces.KeyServer
	sessionTTL   time.Duration
	shareTimeout time.Duration
	log          *slog.Logger
}

// New validates the configuration and builds a protocol instance. The secret
// sharing scheme requires a threshold of at least two, and at least as many
// servers as the threshold.
func New(cfg Config) (*Protocol, error) {
	if cfg.Threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if len(cfg.KeyServers) < cfg.Threshold {
		return nil, fmt.Errorf("need at least %d key servers, have %d", cfg.Threshold, len(cfg.KeyServers))
	}

	p := &Protocol{
		threshold:    cfg.Threshold,
		servers:      cfg.KeyServers,
		sessionTTL:   cfg.SessionTTL,
		shareTimeout: cfg.ShareTimeout,
		log:          cfg.Log,
	}
	if p.sessionTTL <= 0 {
		p.sessionTTL = DefaultSessionTTL
	}
	if p.shareTimeout <= 0 {
		p.shareTimeout = DefaultShareTimeout
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p, nil
}

// SessionTTL returns the configured session proof lifetime.
func (p *Protocol) SessionTTL() time.Duration {
	return p.sessionTTL
}

// Encrypt seals the plaintext under a fresh data key, splits the key into
// one share per key server, and escrows every share before returning. The
// data key exists only inside this call; escrow of all shares must succeed
// or the encryption is abandoned.
//
// Ciphertext layout: [32-byte key identity][12-byte GCM nonce][sealed data].
// The key identity doubles as the GCM additional data, so ciphertext cannot
// be re-headered under a different identity.
func (p *Protocol) Encrypt(ctx context.Context, plaintext []byte, owner interfaces.OwnerAddress, policy interfaces.AccessPolicy) ([]byte, *interfaces.EncryptionInfo, error) {
	if !policy.Validate() {
		return nil, nil, errors.New("invalid access policy")
	}

	identityNonce := uuid.New()
	keyID, err := DeriveIdentity(owner, identityNonce[:])
	if err != nil {
		return nil, nil, err
	}

	dataKey := make([]byte, dataKeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, nil, fmt.Errorf("could not generate data key: %w", err)
	}
	defer wipe(dataKey)

	ciphertext, err := seal(dataKey, keyID, plaintext)
	if err != nil {
		return nil, nil, err
	}

	shares, err := shamir.Split(dataKey, len(p.servers), p.threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("could not split data key: %w", err)
	}
	defer func() {
		for _, share := range shares {
			wipe(share)
		}
	}()

	for i, server := range p.servers {
		serverPub, err := server.EncryptionKey(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("could not fetch encryption key from %s: %w", server.Name(), err)
		}
		sealedShare, err := SealShare(serverPub, shares[i], keyID)
		if err != nil {
			return nil, nil, fmt.Errorf("could not seal share for %s: %w", server.Name(), err)
		}
		if err := server.EscrowShare(ctx, keyID, sealedShare, owner, policy); err != nil {
			return nil, nil, fmt.Errorf("could not escrow share with %s: %w", server.Name(), err)
		}
		p.log.Debug("escrowed key share",
			slog.String("server", server.Name()),
			slog.String("key_id", keyID.String()))
	}

	info := &interfaces.EncryptionInfo{
		Enabled:   true,
		PackageID: PackageID,
		KeyID:     keyID,
		Threshold: p.threshold,
		Owner:     owner,
		Policy:    policy,
	}
	return ciphertext, info, nil
}

func seal(dataKey []byte, keyID interfaces.KeyID, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(dataKey)
	if err != nil {
		return nil, fmt.Errorf("could not create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create gcm: %w", err)
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+gcm.Overhead())
	copy(out[:interfaces.KeyIDLen], keyID.Bytes())
	nonce := out[interfaces.KeyIDLen:headerSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return gcm.Seal(out, nonce, plaintext, keyID.Bytes()), nil
}

func wipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
