package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/attestry/provenance-backend/hasher"
	"github.com/attestry/provenance-backend/interfaces"
)

// FileStore persists blobs on the local filesystem under per-kind
// subdirectories, named by content digest.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed blob store rooted at baseDir, creating
// the per-kind subdirectories if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	for _, kind := range []interfaces.ContentKind{interfaces.CertificateKind, interfaces.PayloadKind} {
		if err := os.MkdirAll(filepath.Join(baseDir, kind.String()), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", kind, err)
		}
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Put writes the blob under its digest and returns a file locator.
func (s *FileStore) Put(_ context.Context, data []byte, kind interfaces.ContentKind) (interfaces.BlobLocator, error) {
	rel := filepath.Join(kind.String(), hasher.Sum(data).Hex())
	path := filepath.Join(s.baseDir, rel)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.log.Debug("stored blob on filesystem",
		slog.String("path", path),
		slog.Int("size", len(data)))
	return interfaces.BlobLocator("file:" + rel), nil
}

// Get reads a blob by locator. Locators issued by other backends report
// ErrContentNotFound.
func (s *FileStore) Get(_ context.Context, locator interfaces.BlobLocator) ([]byte, error) {
	rel, ok := strings.CutPrefix(string(locator), "file:")
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}

	// Locators are server-issued, but refuse traversal anyway.
	path := filepath.Join(s.baseDir, filepath.Clean("/"+rel))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Available checks the base directory still exists.
func (s *FileStore) Available(_ context.Context) bool {
	_, err := os.Stat(s.baseDir)
	return err == nil
}

// Name returns an identifier for logging.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI identifying this backend.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}
