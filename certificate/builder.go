package certificate

import (
	"errors"
	"time"

	"github.com/attestry/provenance-backend/hasher"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/merkle"
)

// ArtifactParams describes the artifact a certificate is issued over.
type ArtifactParams struct {
	Kind      string
	MediaType string
	Filename  string
}

// New builds an unsigned base certificate for the given plaintext artifact
// bytes. The artifact digest is always computed here, over the plaintext,
// before any encryption happens downstream.
func New(author interfaces.OwnerAddress, certType string, data []byte, params ArtifactParams, now time.Time) *interfaces.Certificate {
	kind := params.Kind
	if kind == "" {
		kind = "file"
	}
	mediaType := params.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return &interfaces.Certificate{
		Version:   interfaces.CertificateVersion,
		Type:      certType,
		Timestamp: now.Unix(),
		Author:    author,
		Artifact: interfaces.Artifact{
			Kind:      kind,
			Digest:    hasher.Sum(data),
			Size:      int64(len(data)),
			MediaType: mediaType,
			Filename:  params.Filename,
		},
	}
}

// AttachDataset builds the dataset Merkle tree over the ordered member
// digests and embeds the composition section. Member order is preserved;
// it determines the root and all downstream proof indices.
func AttachDataset(cert *interfaces.Certificate, members []interfaces.Digest, totalSize int64) error {
	if cert == nil {
		return errors.New("nil certificate")
	}

	tree, err := merkle.Build(members)
	if err != nil {
		return err
	}

	cert.Dataset = &interfaces.DatasetInfo{
		FileCount: len(members),
		TotalSize: totalSize,
		Root:      tree.Root(),
		Members:   append([]interfaces.Digest(nil), members...),
	}
	return nil
}

// AttachModel embeds the model provenance section.
func AttachModel(cert *interfaces.Certificate, model interfaces.ModelInfo) error {
	if cert == nil {
		return errors.New("nil certificate")
	}
	if model.Name == "" {
		return errors.New("model name required")
	}

	copied := model
	cert.Model = &copied
	return nil
}

// VerifyDatasetRoot rebuilds the Merkle tree over the embedded member list
// and checks it reproduces the embedded root. Returns false for certificates
// without a dataset section or with an inconsistent one.
func VerifyDatasetRoot(cert *interfaces.Certificate) bool {
	if cert == nil || cert.Dataset == nil {
		return false
	}

	tree, err := merkle.Build(cert.Dataset.Members)
	if err != nil {
		return false
	}
	return tree.Root().Equal(cert.Dataset.Root)
}
