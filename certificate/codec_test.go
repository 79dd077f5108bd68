package certificate

import (
	"testing"
	"time"

	"github.com/attestry/provenance-backend/hasher"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthor(t *testing.T) interfaces.OwnerAddress {
	t.Helper()
	addr, err := interfaces.NewOwnerAddressFromHex("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	return addr
}

func testCert(t *testing.T) *interfaces.Certificate {
	t.Helper()
	return New(testAuthor(t), interfaces.TypeContent, []byte("artifact payload"), ArtifactParams{
		Kind:      "file",
		MediaType: "text/plain",
		Filename:  "artifact.txt",
	}, time.Unix(1700000000, 0))
}

func signedCert(t *testing.T) *interfaces.Certificate {
	t.Helper()
	cert := testCert(t)
	cert.Proofs = []interfaces.Proof{{
		Scheme:    interfaces.SchemeED25519,
		Signature: make([]byte, 64),
		PublicKey: make([]byte, 32),
	}}
	return cert
}

func TestCanonicalize_Deterministic(t *testing.T) {
	first, err := Canonicalize(testCert(t))
	require.NoError(t, err)

	second, err := Canonicalize(testCert(t))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCanonicalize_StableUnderFieldAssignmentOrder(t *testing.T) {
	// Two in-memory certificates with identical field values, populated in
	// different orders, must canonicalize to byte-identical output.
	author := testAuthor(t)

	a := &interfaces.Certificate{}
	a.Artifact = interfaces.Artifact{Kind: "file", Digest: hasher.Sum([]byte("x")), Size: 1, MediaType: "text/plain"}
	a.Author = author
	a.Timestamp = 1700000000
	a.Type = interfaces.TypeContent
	a.Version = interfaces.CertificateVersion

	b := &interfaces.Certificate{}
	b.Version = interfaces.CertificateVersion
	b.Type = interfaces.TypeContent
	b.Timestamp = 1700000000
	b.Author = author
	b.Artifact = interfaces.Artifact{MediaType: "text/plain", Size: 1, Digest: hasher.Sum([]byte("x")), Kind: "file"}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestCanonicalize_ExcludesUnsignedSections(t *testing.T) {
	base := testCert(t)
	baseline, err := Canonicalize(base)
	require.NoError(t, err)

	annotated := testCert(t)
	annotated.Proofs = []interfaces.Proof{{Scheme: interfaces.SchemeED25519, Signature: []byte{1}, PublicKey: []byte{2}}}
	annotated.Storage = &interfaces.StorageInfo{CertLocator: "memory:abc", Backend: "memory"}
	annotated.Encryption = &interfaces.EncryptionInfo{
		Enabled:   true,
		PackageID: "attestry/threshold-aes-gcm/v1",
		Threshold: 2,
		Owner:     testAuthor(t),
		Policy:    interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly},
	}

	withAnnexes, err := Canonicalize(annotated)
	require.NoError(t, err)

	assert.Equal(t, baseline, withAnnexes,
		"proofs, storage and the encryption annex must not reach the signed payload")
}

func TestCanonicalize_SensitiveToSignedFields(t *testing.T) {
	baseline, err := Canonicalize(testCert(t))
	require.NoError(t, err)

	mutated := testCert(t)
	mutated.Timestamp++
	changed, err := Canonicalize(mutated)
	require.NoError(t, err)
	assert.NotEqual(t, baseline, changed)

	mutated = testCert(t)
	mutated.Artifact.Digest = hasher.Sum([]byte("different"))
	changed, err = Canonicalize(mutated)
	require.NoError(t, err)
	assert.NotEqual(t, baseline, changed)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cert := signedCert(t)
	cert.Storage = &interfaces.StorageInfo{CertLocator: "memory:abc"}

	raw, err := Encode(cert)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, cert, decoded)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"version": "not-a-number"`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"artifact":{"digest":"sha256:zz"}}`))
	assert.Error(t, err, "invalid digest encoding must fail decode")
}

func TestValidateStructure(t *testing.T) {
	assert.True(t, ValidateStructure(signedCert(t)))
	assert.False(t, ValidateStructure(nil))

	cert := signedCert(t)
	cert.Version = 99
	assert.False(t, ValidateStructure(cert))

	cert = signedCert(t)
	cert.Type = "unknown"
	assert.False(t, ValidateStructure(cert))

	cert = signedCert(t)
	cert.Timestamp = 0
	assert.False(t, ValidateStructure(cert))

	cert = signedCert(t)
	cert.Author = interfaces.OwnerAddress{}
	assert.False(t, ValidateStructure(cert))

	cert = signedCert(t)
	cert.Proofs = nil
	assert.False(t, ValidateStructure(cert), "proof section is mandatory")

	cert = signedCert(t)
	cert.Proofs[0].Scheme = "rsa"
	assert.False(t, ValidateStructure(cert), "scheme must be in the supported set")

	cert = signedCert(t)
	cert.Artifact.MediaType = ""
	assert.False(t, ValidateStructure(cert))

	cert = signedCert(t)
	cert.Dataset = &interfaces.DatasetInfo{FileCount: 2, Members: []interfaces.Digest{hasher.Sum([]byte("a"))}}
	assert.False(t, ValidateStructure(cert), "file count must match member list")

	cert = signedCert(t)
	cert.Encryption = &interfaces.EncryptionInfo{Threshold: 0, PackageID: "p", Policy: interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly}}
	assert.False(t, ValidateStructure(cert))

	cert = signedCert(t)
	cert.Encryption = &interfaces.EncryptionInfo{
		Threshold: 2,
		PackageID: "attestry/threshold-aes-gcm/v1",
		Owner:     testAuthor(t),
		Policy:    interfaces.AccessPolicy{Mode: "everyone"},
	}
	assert.False(t, ValidateStructure(cert), "unknown policy mode must fail")
}

func TestMatchesFile(t *testing.T) {
	payload := []byte("artifact payload")
	cert := testCert(t)

	assert.True(t, MatchesFile(cert, payload))

	flipped := append([]byte(nil), payload...)
	flipped[0] ^= 0x01
	assert.False(t, MatchesFile(cert, flipped))
	assert.False(t, MatchesFile(nil, payload))
}

func TestAttachDataset(t *testing.T) {
	cert := testCert(t)
	members := []interfaces.Digest{
		hasher.Sum([]byte("part-1")),
		hasher.Sum([]byte("part-2")),
		hasher.Sum([]byte("part-3")),
	}

	require.NoError(t, AttachDataset(cert, members, 3072))
	require.NotNil(t, cert.Dataset)
	assert.Equal(t, 3, cert.Dataset.FileCount)
	assert.True(t, VerifyDatasetRoot(cert))

	// Tampering with a member breaks root consistency.
	cert.Dataset.Members[1] = hasher.Sum([]byte("swapped"))
	assert.False(t, VerifyDatasetRoot(cert))

	assert.Error(t, AttachDataset(cert, nil, 0), "empty member list must be rejected")
}
