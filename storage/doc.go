// Package storage implements content-addressed blob stores for certificates
// and artifact payloads: local filesystem, S3-compatible object storage, IPFS,
// and an in-memory store for tests, plus a multi-store aggregating several
// backends with fallback.
//
// Locators are scheme-prefixed opaque strings ("file:...", "s3:...",
// "ipfs:...", "memory:..."). A backend asked for a locator it did not issue
// reports ErrContentNotFound, which is what lets the multi-store probe its
// backends in order.
package storage
