// Package certificate implements the provenance certificate codec: the
// canonical signature-stable serialization, structural validation of
// untrusted candidates, and artifact matching.
package certificate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/attestry/provenance-backend/hasher"
	"github.com/attestry/provenance-backend/interfaces"
)

// Canonicalize produces the exact byte sequence the signature protocol signs.
//
// The proofs and storage sections are omitted entirely, not zeroed: storage
// is only known after signing and proofs are the signature itself. The
// encryption annex is omitted for the same reason — it is attached after
// signing and is deliberately not covered by the signature; on-ledger policy
// must authenticate it independently.
//
// Serialization is compact JSON with lexicographically sorted keys at every
// nesting level, so two conforming implementations produce byte-identical
// output for identical certificate content. encoding/json sorts map keys,
// which makes the map representation below the canonical form.
func Canonicalize(cert *interfaces.Certificate) ([]byte, error) {
	if cert == nil {
		return nil, errors.New("nil certificate")
	}

	artifact := map[string]any{
		"digest":     cert.Artifact.Digest.String(),
		"kind":       cert.Artifact.Kind,
		"media_type": cert.Artifact.MediaType,
		"size":       cert.Artifact.Size,
	}
	if cert.Artifact.Filename != "" {
		artifact["filename"] = cert.Artifact.Filename
	}

	payload := map[string]any{
		"artifact":  artifact,
		"author":    cert.Author.String(),
		"timestamp": cert.Timestamp,
		"type":      cert.Type,
		"version":   cert.Version,
	}

	if cert.Model != nil {
		model := map[string]any{
			"name":    cert.Model.Name,
			"version": cert.Model.Version,
		}
		if cert.Model.PromptDigest != nil {
			model["prompt_digest"] = cert.Model.PromptDigest.String()
		}
		if cert.Model.CheckpointDigest != nil {
			model["checkpoint_digest"] = cert.Model.CheckpointDigest.String()
		}
		if cert.Model.DatasetRoot != "" {
			model["dataset_root"] = cert.Model.DatasetRoot
		}
		payload["model"] = model
	}

	if cert.Dataset != nil {
		members := make([]string, len(cert.Dataset.Members))
		for i, member := range cert.Dataset.Members {
			members[i] = member.String()
		}
		payload["dataset"] = map[string]any{
			"file_count": cert.Dataset.FileCount,
			"members":    members,
			"root":       cert.Dataset.Root.String(),
			"total_size": cert.Dataset.TotalSize,
		}
	}

	return json.Marshal(payload)
}

// Encode serializes the full certificate, annexes included, for persistence.
func Encode(cert *interfaces.Certificate) ([]byte, error) {
	if cert == nil {
		return nil, errors.New("nil certificate")
	}
	return json.Marshal(cert)
}

// Decode parses a persisted certificate. The result is untrusted until
// ValidateStructure and signature verification pass.
func Decode(raw []byte) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	if err := json.Unmarshal(raw, &cert); err != nil {
		return nil, fmt.Errorf("malformed certificate: %w", err)
	}
	return &cert, nil
}

// ValidateStructure checks presence and well-formedness of all required
// fields on a candidate fetched from public storage. It returns false rather
// than raising on any structural defect; input is assumed possibly malicious.
func ValidateStructure(cert *interfaces.Certificate) bool {
	if cert == nil {
		return false
	}
	if cert.Version != interfaces.CertificateVersion {
		return false
	}

	switch cert.Type {
	case interfaces.TypeContent, interfaces.TypeModel, interfaces.TypeDataset:
	default:
		return false
	}

	if cert.Timestamp <= 0 {
		return false
	}
	if cert.Author.IsZero() {
		return false
	}

	if cert.Artifact.Kind == "" || cert.Artifact.MediaType == "" || cert.Artifact.Size < 0 {
		return false
	}
	if len(cert.Artifact.Digest.String()) != interfaces.DigestStringLen {
		return false
	}

	if len(cert.Proofs) == 0 {
		return false
	}
	for _, proof := range cert.Proofs {
		if !proof.Scheme.Valid() {
			return false
		}
		if len(proof.Signature) == 0 || len(proof.PublicKey) == 0 {
			return false
		}
	}

	if cert.Model != nil && cert.Model.Name == "" {
		return false
	}

	if cert.Dataset != nil {
		if cert.Dataset.FileCount <= 0 || cert.Dataset.TotalSize < 0 {
			return false
		}
		if cert.Dataset.FileCount != len(cert.Dataset.Members) {
			return false
		}
	}

	if cert.Encryption != nil {
		enc := cert.Encryption
		if enc.Threshold < 1 || enc.PackageID == "" {
			return false
		}
		if !enc.Policy.Validate() {
			return false
		}
		if enc.Enabled && enc.Owner.IsZero() {
			return false
		}
	}

	return true
}

// MatchesFile recomputes the digest of fileBytes and compares it byte-exact
// to the certificate's artifact digest.
func MatchesFile(cert *interfaces.Certificate, fileBytes []byte) bool {
	if cert == nil {
		return false
	}
	return hasher.Sum(fileBytes).Equal(cert.Artifact.Digest)
}
