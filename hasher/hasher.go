// Package hasher computes content-addressing digests over byte streams and
// structured data. Hashing is pure and deterministic; any byte sequence,
// including empty input, has a digest. I/O failures while producing the bytes
// are the caller's concern.
package hasher

import (
	"crypto/sha256"
	"encoding/json"
	"io"
	"sort"

	"github.com/attestry/provenance-backend/interfaces"
)

// Sum computes the SHA-256 digest of data.
func Sum(data []byte) interfaces.Digest {
	return interfaces.Digest(sha256.Sum256(data))
}

// SumReader computes the digest of everything readable from r, returning the
// digest and the number of bytes consumed.
func SumReader(r io.Reader) (interfaces.Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return interfaces.Digest{}, n, err
	}

	var d interfaces.Digest
	copy(d[:], h.Sum(nil))
	return d, n, nil
}

// Composite hashes structured data through a canonical serialization: keys
// sorted lexicographically, compact JSON, no whitespace. Language-native map
// iteration order never reaches the hash.
func Composite(fields map[string]string) interfaces.Digest {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// encoding/json escapes strings deterministically, so marshaling each
	// key and value individually keeps the byte stream canonical.
	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(fields[k])
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')

	return Sum(buf)
}
