package thresholdenc

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/hashicorp/vault/shamir"
)

type shareResult struct {
	server string
	share  []byte
	err    error
}

// Decrypt collects key shares from the server set and reassembles the data
// key once threshold shares arrive. Requests fan out concurrently with a
// per-server timeout; stragglers are cancelled as soon as quorum is reached.
//
// Fewer than threshold released shares surfaces ErrQuorumNotReached, except
// when every server denied the requester, which surfaces ErrAccessDenied. An
// already-elapsed session surfaces ErrSessionExpired without contacting any
// server.
func (p *Protocol) Decrypt(ctx context.Context, ciphertext, token []byte, session interfaces.SessionProof) ([]byte, error) {
	keyID, nonce, sealed, err := splitCiphertext(ciphertext)
	if err != nil {
		return nil, err
	}

	if time.Now().Unix() >= session.ExpiresAt {
		return nil, interfaces.ErrSessionExpired
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan shareResult, len(p.servers))
	for _, server := range p.servers {
		go func(server interfaces.KeyServer) {
			reqCtx, reqCancel := context.WithTimeout(ctx, p.shareTimeout)
			defer reqCancel()

			share, err := server.RequestKeyShare(reqCtx, keyID, token, session)
			results <- shareResult{server: server.Name(), share: share, err: err}
		}(server)
	}

	var shares [][]byte
	denied := 0
	for responded := 0; responded < len(p.servers) && len(shares) < p.threshold; responded++ {
		res := <-results
		switch {
		case res.err == nil:
			shares = append(shares, res.share)
		case errors.Is(res.err, interfaces.ErrAccessDenied):
			denied++
			p.log.Warn("key server denied share release",
				slog.String("server", res.server),
				slog.String("key_id", keyID.String()))
		default:
			p.log.Warn("key share request failed",
				slog.String("server", res.server),
				slog.String("key_id", keyID.String()),
				slog.String("err", res.err.Error()))
		}
	}

	if len(shares) < p.threshold {
		if denied == len(p.servers) {
			return nil, interfaces.ErrAccessDenied
		}
		return nil, fmt.Errorf("%w: %d of %d required shares released",
			interfaces.ErrQuorumNotReached, len(shares), p.threshold)
	}

	dataKey, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("could not combine key shares: %w", err)
	}
	defer wipe(dataKey)

	return open(dataKey, keyID, nonce, sealed)
}

func splitCiphertext(ciphertext []byte) (interfaces.KeyID, []byte, []byte, error) {
	if len(ciphertext) < headerSize {
		return interfaces.KeyID{}, nil, nil, errors.New("ciphertext shorter than header")
	}
	keyID, err := interfaces.NewKeyIDFromBytes(ciphertext[:interfaces.KeyIDLen])
	if err != nil {
		return interfaces.KeyID{}, nil, nil, err
	}
	return keyID, ciphertext[interfaces.KeyIDLen:headerSize], ciphertext[headerSize:], nil
}

// KeyIdentity extracts the key identity from a ciphertext header without
// decrypting, so callers can build tokens and locate escrowed shares.
func KeyIdentity(ciphertext []byte) (interfaces.KeyID, error) {
	keyID, _, _, err := splitCiphertext(ciphertext)
	return keyID, err
}

func open(dataKey []byte, keyID interfaces.KeyID, nonce, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(dataKey)
	if err != nil {
		return nil, fmt.Errorf("could not create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, keyID.Bytes())
	if err != nil {
		return nil, fmt.Errorf("could not decrypt payload: %w", err)
	}
	return plaintext, nil
}
