package hasher

import (
	"context"
	"runtime"

	"github.com/attestry/provenance-backend/interfaces"
)

// SumAll hashes a batch of independent blobs concurrently with a bounded
// worker pool. The result slice preserves the caller-supplied order, which is
// load-bearing: dataset Merkle trees are built over these digests and leaf
// order determines the root and every proof index.
func SumAll(ctx context.Context, blobs [][]byte, workers int) []interfaces.Digest {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(blobs) {
		workers = len(blobs)
	}

	digests := make([]interfaces.Digest, len(blobs))
	if len(blobs) == 0 {
		return digests
	}

	sem := make(chan struct{}, workers)
	done := make(chan int, len(blobs))

	for i := range blobs {
		select {
		case <-ctx.Done():
			// Hash the remainder inline; hashing cannot fail and callers
			// expect a complete, ordered result.
			for j := i; j < len(blobs); j++ {
				digests[j] = Sum(blobs[j])
			}
			for range i {
				<-done
			}
			return digests
		case sem <- struct{}{}:
		}

		go func(idx int) {
			defer func() { <-sem }()
			digests[idx] = Sum(blobs[idx])
			done <- idx
		}(i)
	}

	for range blobs {
		<-done
	}
	return digests
}
