package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
)

// MultiStore aggregates several blob stores. Writes go to every available
// backend; reads probe backends in order until one recognizes the locator.
type MultiStore struct {
	backends []interfaces.BlobStore
	log      *slog.Logger
}

// NewMultiStore creates a multi-store over the given backends.
func NewMultiStore(backends []interfaces.BlobStore, log *slog.Logger) *MultiStore {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStore{backends: backends, log: log}
}

// Put stores the blob to all available backends and returns the locator from
// the first successful one. Partial failure is tolerated as long as one
// backend accepted the write.
func (m *MultiStore) Put(ctx context.Context, data []byte, kind interfaces.ContentKind) (interfaces.BlobLocator, error) {
	start := time.Now()
	var locator interfaces.BlobLocator
	var stored bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("backend unavailable", slog.String("backend", backend.Name()))
			continue
		}

		loc, err := backend.Put(ctx, data, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("failed to store to backend",
				slog.String("backend", backend.Name()),
				slog.String("err", err.Error()))
			continue
		}
		if !stored {
			locator = loc
			stored = true
			m.log.Info("stored blob",
				slog.String("backend", backend.Name()),
				slog.String("locator", loc.String()),
				slog.Duration("duration", time.Since(start)))
		}
	}

	if !stored {
		m.log.Error("all backends failed to store blob",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("all backends failed to store blob: %v", errs)
	}
	return locator, nil
}

// Get probes backends in order. Backends that did not issue the locator
// report ErrContentNotFound and the probe moves on.
func (m *MultiStore) Get(ctx context.Context, locator interfaces.BlobLocator) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}

		data, err := backend.Get(ctx, locator)
		if err == nil {
			m.log.Debug("fetched blob",
				slog.String("backend", backend.Name()),
				slog.String("locator", locator.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}
		if !errors.Is(err, interfaces.ErrContentNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to fetch %s: %v", locator, errs)
	}
	return nil, interfaces.ErrContentNotFound
}

// Available reports whether any backend is accessible.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns an identifier for logging.
func (m *MultiStore) Name() string {
	return "multi-storage"
}

// LocationURI returns the combined URI of all backends.
func (m *MultiStore) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
