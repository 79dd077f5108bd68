package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/attestry/provenance-backend/hasher"
	"github.com/attestry/provenance-backend/interfaces"
)

// MemoryStore keeps blobs in a map. Used in tests and for ephemeral
// single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[interfaces.BlobLocator][]byte
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[interfaces.BlobLocator][]byte)}
}

// Put stores the blob under its digest.
func (s *MemoryStore) Put(_ context.Context, data []byte, kind interfaces.ContentKind) (interfaces.BlobLocator, error) {
	locator := interfaces.BlobLocator(fmt.Sprintf("memory:%s/%s", kind, hasher.Sum(data).Hex()))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[locator] = append([]byte(nil), data...)
	return locator, nil
}

// Get retrieves a blob by locator.
func (s *MemoryStore) Get(_ context.Context, locator interfaces.BlobLocator) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, found := s.blobs[locator]
	if !found {
		return nil, interfaces.ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

// Available always reports true.
func (s *MemoryStore) Available(_ context.Context) bool {
	return true
}

// Name returns an identifier for logging.
func (s *MemoryStore) Name() string {
	return "memory"
}

// LocationURI returns the URI identifying this backend.
func (s *MemoryStore) LocationURI() string {
	return "memory://"
}
