package interfaces

// CertificateVersion is the current certificate schema version.
const CertificateVersion = 1

// Certificate type tags.
const (
	TypeContent = "content"
	TypeModel   = "model"
	TypeDataset = "dataset"
)

// SignatureScheme identifies a supported signature algorithm.
type SignatureScheme string

const (
	SchemeED25519   SignatureScheme = "ed25519"
	SchemeSECP256K1 SignatureScheme = "secp256k1"
)

// Valid reports whether the scheme is one of the supported enumerated set.
func (s SignatureScheme) Valid() bool {
	switch s {
	case SchemeED25519, SchemeSECP256K1:
		return true
	default:
		return false
	}
}

// Access policy modes for encrypted artifacts.
const (
	PolicyOwnerOnly = "owner"
	PolicyAllowlist = "allowlist"
)

// Artifact describes the content a certificate is issued over. The digest is
// always computed over the original plaintext file, even when the stored blob
// is ciphertext, so that public verification never requires decryption.
type Artifact struct {
	Kind      string `json:"kind"`
	Digest    Digest `json:"digest"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
	Filename  string `json:"filename,omitempty"`
}

// ModelInfo is the optional AI-model provenance section.
type ModelInfo struct {
	Name             string  `json:"name"`
	Version          string  `json:"version"`
	PromptDigest     *Digest `json:"prompt_digest,omitempty"`
	CheckpointDigest *Digest `json:"checkpoint_digest,omitempty"`
	DatasetRoot      string  `json:"dataset_root,omitempty"`
}

// DatasetInfo is the optional dataset composition section. Members are the
// ordered leaf digests the Merkle root was built over; order is significant
// for proof indices.
type DatasetInfo struct {
	FileCount int        `json:"file_count"`
	TotalSize int64      `json:"total_size"`
	Root      MerkleRoot `json:"root"`
	Members   []Digest   `json:"members"`
}

// AccessPolicy describes who key servers may release decryption shares to.
type AccessPolicy struct {
	Mode      string         `json:"mode"`
	Allowlist []OwnerAddress `json:"allowlist,omitempty"`
}

// Allows reports whether the policy permits the requester, given the owner
// the key identity was derived for.
func (p AccessPolicy) Allows(owner, requester OwnerAddress) bool {
	if requester.Equal(owner) {
		return true
	}
	if p.Mode != PolicyAllowlist {
		return false
	}
	for _, allowed := range p.Allowlist {
		if allowed.Equal(requester) {
			return true
		}
	}
	return false
}

// Validate checks the policy mode is one of the supported set.
func (p AccessPolicy) Validate() bool {
	switch p.Mode {
	case PolicyOwnerOnly:
		return true
	case PolicyAllowlist:
		return true
	default:
		return false
	}
}

// EncryptionInfo is the optional encryption annex. It is attached to the
// certificate after signing and is therefore NOT covered by the signature;
// downstream policy must authenticate it independently.
type EncryptionInfo struct {
	Enabled     bool         `json:"enabled"`
	BlobLocator string       `json:"blob_locator,omitempty"`
	PackageID   string       `json:"package_id"`
	KeyID       KeyID        `json:"key_id"`
	Threshold   int          `json:"threshold"`
	Owner       OwnerAddress `json:"owner"`
	Policy      AccessPolicy `json:"policy"`
}

// Proof carries a detached signature over the canonicalized certificate.
type Proof struct {
	Scheme    SignatureScheme `json:"scheme"`
	Signature []byte          `json:"signature"`
	PublicKey []byte          `json:"public_key"`
}

// StorageInfo records where the final certificate and its artifact blob were
// persisted. Known only after signing, so always outside the signed payload.
type StorageInfo struct {
	CertLocator string `json:"cert_locator"`
	BlobLocator string `json:"blob_locator,omitempty"`
	Backend     string `json:"backend,omitempty"`
}

// Certificate is a versioned, signed, content-addressed provenance claim.
//
// The proofs and storage sections are excluded from the canonical bytes that
// get signed: storage is only known post-signature and proofs are the
// signature itself. The encryption annex is likewise attached after signing.
type Certificate struct {
	Version   int          `json:"version"`
	Type      string       `json:"type"`
	Timestamp int64        `json:"timestamp"`
	Author    OwnerAddress `json:"author"`
	Artifact  Artifact     `json:"artifact"`

	Model      *ModelInfo      `json:"model,omitempty"`
	Dataset    *DatasetInfo    `json:"dataset,omitempty"`
	Encryption *EncryptionInfo `json:"encryption,omitempty"`

	Proofs  []Proof      `json:"proofs"`
	Storage *StorageInfo `json:"storage,omitempty"`
}
