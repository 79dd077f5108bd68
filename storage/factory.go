package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/attestry/provenance-backend/interfaces"
)

// Factory creates blob stores from location URIs.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a blob store factory.
func NewFactory(log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{log: log}
}

// BlobStoreFor creates a store from a location URI.
//
// Supported schemes:
//   - file:///var/attestry/blobs - local filesystem
//   - s3://bucket/prefix?region=us-east-1&endpoint=custom.s3.com - object storage
//   - ipfs://host:port/ - IPFS node API
//   - memory:// - in-memory, for tests
func (f *Factory) BlobStoreFor(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	switch location.Scheme {
	case "file":
		return f.createFileStore(location)
	case "s3":
		return f.createS3Store(location)
	case "ipfs":
		return f.createIPFSStore(location)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiStore creates an aggregated store over every location that
// yields a valid backend. At least one must succeed.
func (f *Factory) CreateMultiStore(locations []interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	backends := make([]interfaces.BlobStore, 0, len(locations))
	for _, location := range locations {
		backend, err := f.BlobStoreFor(location)
		if err != nil {
			f.log.Warn("failed to create blob store",
				slog.String("location", location.String()),
				slog.String("err", err.Error()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid blob stores created")
	}
	return NewMultiStore(backends, f.log), nil
}

func (f *Factory) createFileStore(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + path
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI", interfaces.ErrInvalidLocationURI)
	}
	return NewFileStore(path, f.log)
}

func (f *Factory) createS3Store(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	// auth is "access:secret" embedded in the URI
	accessKey, secretKey, _ := strings.Cut(location.Auth, ":")

	return NewS3Store(location.Host, strings.TrimPrefix(location.Path, "/"), region,
		location.GetParam("endpoint"), accessKey, secretKey, f.log)
}

func (f *Factory) createIPFSStore(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	host, port := location.Host, "5001"
	if h, p, found := strings.Cut(location.Host, ":"); found {
		host, port = h, p
	}
	return NewIPFSStore(host, port, f.log)
}
