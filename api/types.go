// Package api defines the wire types shared by the HTTP handlers and their
// clients.
package api

import (
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/signature"
)

// SubmitCertificateResponse is returned when a certificate is accepted.
type SubmitCertificateResponse struct {
	CertLocator string `json:"cert_locator"`
}

// SubmitBlobResponse is returned when an artifact blob is accepted.
type SubmitBlobResponse struct {
	BlobLocator string `json:"blob_locator"`
	Size        int    `json:"size"`
}

// VerifyRequest asks the certificate server to examine a certificate against
// a candidate file.
type VerifyRequest struct {
	Certificate *interfaces.Certificate `json:"certificate"`
	// FileBytes is the base64-encoded candidate file content. Alternatively
	// BlobLocator names an already-stored blob.
	FileBytes   []byte `json:"file_bytes,omitempty"`
	BlobLocator string `json:"blob_locator,omitempty"`
}

// VerifyResponse carries the per-check verification outcome.
type VerifyResponse struct {
	Valid  bool             `json:"valid"`
	Report signature.Report `json:"report"`
}

// EscrowShareRequest submits a sealed key share for escrow.
type EscrowShareRequest struct {
	SealedShare []byte                  `json:"sealed_share"`
	Owner       interfaces.OwnerAddress `json:"owner"`
	Policy      interfaces.AccessPolicy `json:"policy"`
}

// ShareRequest asks a key server to release an escrowed share.
type ShareRequest struct {
	Token   []byte                  `json:"token"`
	Session interfaces.SessionProof `json:"session"`
}

// ShareResponse carries a released share.
type ShareResponse struct {
	Share []byte `json:"share"`
}

// EncryptionKeyResponse carries a key server's share-sealing public key.
type EncryptionKeyResponse struct {
	Name      string `json:"name"`
	PublicKey []byte `json:"public_key"`
}
