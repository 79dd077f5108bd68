package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// BlobLocator is an opaque content-locator string returned by a blob store.
// The protocol never inspects it beyond passing it back to the store.
type BlobLocator string

// String returns the locator string.
func (l BlobLocator) String() string {
	return string(l)
}

// ContentKind indicates storage namespace.
type ContentKind int

const (
	// CertificateKind for serialized certificates
	CertificateKind ContentKind = iota
	// PayloadKind for artifact payloads, plaintext or ciphertext
	PayloadKind
)

// String returns the kind name.
func (k ContentKind) String() string {
	switch k {
	case CertificateKind:
		return "cert"
	case PayloadKind:
		return "payload"
	default:
		return "unknown"
	}
}

var (
	// ErrContentNotFound is returned when the object behind a locator is
	// absent or expired.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not
	// accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackendLocation represents a URI configuring a storage backend.
type StorageBackendLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
	Auth   string
}

// NewStorageBackendLocation creates a storage location from a URI string with
// validation. Supported schemes: file, s3, ipfs, memory.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3", "ipfs", "memory":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

// BlobStore provides immutable content-addressed blob storage. Certificates
// and artifact payloads are persisted through this contract; the locator is
// treated as opaque by everything above the storage layer.
type BlobStore interface {
	// Put saves data and returns its locator.
	Put(ctx context.Context, data []byte, kind ContentKind) (BlobLocator, error)

	// Get retrieves data by locator. Returns ErrContentNotFound if absent.
	Get(ctx context.Context, locator BlobLocator) ([]byte, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}

// BlobStoreFactory creates blob stores from location URIs.
type BlobStoreFactory interface {
	// BlobStoreFor creates a backend from a URI.
	BlobStoreFor(location StorageBackendLocation) (BlobStore, error)

	// CreateMultiStore creates an aggregated store with fallback.
	CreateMultiStore(locations []StorageBackendLocation) (BlobStore, error)
}
