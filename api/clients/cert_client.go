package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/attestry/provenance-backend/api"
	"github.com/attestry/provenance-backend/certificate"
	"github.com/attestry/provenance-backend/interfaces"
)

// CertClient talks to the certificate server.
type CertClient struct {
	BaseURL string
	Client  *http.Client
}

// NewCertClient creates a client for the certificate server at baseURL.
func NewCertClient(baseURL string) *CertClient {
	return &CertClient{BaseURL: baseURL, Client: http.DefaultClient}
}

// Submit uploads a signed certificate and returns its locator.
func (c *CertClient) Submit(ctx context.Context, cert *interfaces.Certificate) (interfaces.BlobLocator, error) {
	raw, err := certificate.Encode(cert)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/certificates", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp api.SubmitCertificateResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return interfaces.BlobLocator(resp.CertLocator), nil
}

// Fetch retrieves a certificate by locator.
func (c *CertClient) Fetch(ctx context.Context, locator interfaces.BlobLocator) (*interfaces.Certificate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/certificates/"+url.PathEscape(locator.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	body, err := c.doRaw(req)
	if err != nil {
		return nil, err
	}
	return certificate.Decode(body)
}

// Verify asks the server to examine a certificate against a candidate file.
func (c *CertClient) Verify(ctx context.Context, cert *interfaces.Certificate, fileBytes []byte) (*api.VerifyResponse, error) {
	body, err := json.Marshal(api.VerifyRequest{Certificate: cert, FileBytes: fileBytes})
	if err != nil {
		return nil, fmt.Errorf("could not encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/certificates/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp api.VerifyResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitBlob uploads an artifact payload and returns its locator.
func (c *CertClient) SubmitBlob(ctx context.Context, data []byte) (interfaces.BlobLocator, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/blobs", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp api.SubmitBlobResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return interfaces.BlobLocator(resp.BlobLocator), nil
}

// FetchBlob retrieves an artifact payload by locator.
func (c *CertClient) FetchBlob(ctx context.Context, locator interfaces.BlobLocator) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/blobs/"+url.PathEscape(locator.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	return c.doRaw(req)
}

func (c *CertClient) do(req *http.Request, out any) error {
	body, err := c.doRaw(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not parse certificate server response: %w", err)
	}
	return nil
}

func (c *CertClient) doRaw(req *http.Request) ([]byte, error) {
	if c.Client == nil {
		c.Client = http.DefaultClient
	}

	httpResp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request certificate server: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read certificate server response: %w", err)
	}
	if httpResp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, string(body))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("certificate server returned %d: %s", httpResp.StatusCode, string(body))
	}
	return body, nil
}
