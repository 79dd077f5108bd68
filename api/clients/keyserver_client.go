// Package clients provides HTTP clients for the certificate and key-server
// APIs, mirroring the server-side handlers.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/attestry/provenance-backend/api"
	"github.com/attestry/provenance-backend/interfaces"
)

// KeyServerClient implements the key-server contract over HTTP, so the
// encryption protocol can talk to remote key servers exactly as it talks to
// in-process ones.
type KeyServerClient struct {
	BaseURL string
	Client  *http.Client

	name string
}

// NewKeyServerClient creates a client for the key server at baseURL.
func NewKeyServerClient(name, baseURL string) *KeyServerClient {
	return &KeyServerClient{
		BaseURL: baseURL,
		Client:  http.DefaultClient,
		name:    name,
	}
}

// Name returns the configured server identifier.
func (c *KeyServerClient) Name() string {
	return c.name
}

// EncryptionKey fetches the server's share-sealing public key.
func (c *KeyServerClient) EncryptionKey(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/keyserver/pubkey", nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	var resp api.EncryptionKeyResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.PublicKey, nil
}

// EscrowShare submits a sealed share for escrow.
func (c *KeyServerClient) EscrowShare(ctx context.Context, keyID interfaces.KeyID, sealedShare []byte, owner interfaces.OwnerAddress, policy interfaces.AccessPolicy) error {
	body, err := json.Marshal(api.EscrowShareRequest{
		SealedShare: sealedShare,
		Owner:       owner,
		Policy:      policy,
	})
	if err != nil {
		return fmt.Errorf("could not encode escrow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/keyserver/escrow/%s", c.BaseURL, keyID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, http.StatusNoContent, nil)
}

// RequestKeyShare asks the server to release a share. HTTP statuses map back
// to the protocol's sentinel errors so quorum accounting works across the
// wire.
func (c *KeyServerClient) RequestKeyShare(ctx context.Context, keyID interfaces.KeyID, token []byte, session interfaces.SessionProof) ([]byte, error) {
	body, err := json.Marshal(api.ShareRequest{Token: token, Session: session})
	if err != nil {
		return nil, fmt.Errorf("could not encode share request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/keyserver/share/%s", c.BaseURL, keyID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request key server: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read key server response: %w", err)
	}

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAccessDenied, string(respBody))
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSessionExpired, string(respBody))
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrShareNotFound, string(respBody))
	default:
		return nil, fmt.Errorf("key server returned %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp api.ShareResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("could not parse key server response: %w", err)
	}
	return resp.Share, nil
}

func (c *KeyServerClient) do(req *http.Request, wantStatus int, out any) error {
	if c.Client == nil {
		c.Client = http.DefaultClient
	}

	httpResp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("could not request key server: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("could not read key server response: %w", err)
	}
	if httpResp.StatusCode != wantStatus {
		return fmt.Errorf("key server returned %d: %s", httpResp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("could not parse key server response: %w", err)
		}
	}
	return nil
}
