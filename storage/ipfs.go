package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
	shell "github.com/ipfs/go-ipfs-api"
)

// IPFSStore persists blobs on an IPFS node through its HTTP API. IPFS is
// itself content-addressed, so the locator carries the CID the node assigned.
type IPFSStore struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSStore creates a blob store connected to the IPFS API at host:port.
func NewIPFSStore(host, port string, log *slog.Logger) (*IPFSStore, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSStore{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/", apiURL),
	}, nil
}

// Put adds the blob to IPFS and returns a locator carrying its CID.
func (s *IPFSStore) Put(_ context.Context, data []byte, kind interfaces.ContentKind) (interfaces.BlobLocator, error) {
	start := time.Now()
	if !s.shell.IsUp() {
		return "", interfaces.ErrBackendUnavailable
	}

	cid, err := s.shell.Add(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to add blob to ipfs: %w", err)
	}

	s.log.Debug("stored blob in ipfs",
		slog.String("cid", cid),
		slog.String("kind", kind.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return interfaces.BlobLocator("ipfs:" + cid), nil
}

// Get retrieves a blob by its CID locator.
func (s *IPFSStore) Get(_ context.Context, locator interfaces.BlobLocator) ([]byte, error) {
	cid, ok := strings.CutPrefix(string(locator), "ipfs:")
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}

	start := time.Now()
	if !s.shell.IsUp() {
		s.log.Warn("ipfs node unavailable",
			slog.String("host", s.host),
			slog.String("port", s.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := s.shell.Cat("/ipfs/" + cid)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") || strings.Contains(err.Error(), "not found") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to fetch blob from ipfs: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob from ipfs: %w", err)
	}

	s.log.Debug("fetched blob from ipfs",
		slog.String("cid", cid),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

// Available checks if the IPFS node is accessible.
func (s *IPFSStore) Available(_ context.Context) bool {
	return s.shell.IsUp()
}

// Name returns an identifier for logging.
func (s *IPFSStore) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", s.host, s.port)
}

// LocationURI returns the URI identifying this backend.
func (s *IPFSStore) LocationURI() string {
	return s.locationURI
}
