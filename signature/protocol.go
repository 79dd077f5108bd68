// Package signature canonicalizes certificates for signing, drives the
// external signer, and verifies signature/public-key pairs against the
// claimed author identity.
//
// A certificate moves one way, unsigned to signed. Nothing here mutates a
// certificate after signing except appending the proof, encryption and
// storage sections, which are outside the signed payload by construction.
package signature

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/attestry/provenance-backend/certificate"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sign canonicalizes the base certificate and passes the exact bytes to the
// external signer. The returned proof carries the detached signature and the
// signer's public key; private keys never enter this package.
func Sign(ctx context.Context, cert *interfaces.Certificate, signer interfaces.ExternalSigner) (interfaces.Proof, error) {
	if !signer.Scheme().Valid() {
		return interfaces.Proof{}, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedScheme, signer.Scheme())
	}

	payload, err := certificate.Canonicalize(cert)
	if err != nil {
		return interfaces.Proof{}, fmt.Errorf("could not canonicalize certificate: %w", err)
	}

	sig, err := signer.Sign(ctx, payload)
	if err != nil {
		return interfaces.Proof{}, fmt.Errorf("%w: %v", interfaces.ErrSignerUnavailable, err)
	}

	return interfaces.Proof{
		Scheme:    signer.Scheme(),
		Signature: sig,
		PublicKey: signer.PublicKey(),
	}, nil
}

// Verify recomputes the canonical payload and checks the proof against it and
// against the author identity the certificate claims. Both the cryptographic
// check and the identity binding must pass: a structurally valid signature
// from the wrong signer verifies false.
//
// Verification runs routinely on adversarial input, so it reports false for
// every failure mode, including unsupported schemes, and never panics.
func Verify(cert *interfaces.Certificate, proof interfaces.Proof) bool {
	if cert == nil {
		return false
	}

	payload, err := certificate.Canonicalize(cert)
	if err != nil {
		return false
	}

	if !VerifyMessage(proof.Scheme, proof.PublicKey, payload, proof.Signature) {
		return false
	}

	signerAddr, err := AddressForPublicKey(proof.Scheme, proof.PublicKey)
	if err != nil {
		return false
	}
	return signerAddr.Equal(cert.Author)
}

// VerifyMessage checks a detached signature over an arbitrary message for the
// given scheme. Used for certificate payloads and for session challenges.
func VerifyMessage(scheme interfaces.SignatureScheme, publicKey, message, sig []byte) bool {
	switch scheme {
	case interfaces.SchemeED25519:
		if len(publicKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(publicKey), message, sig)

	case interfaces.SchemeSECP256K1:
		// Signatures are 65 bytes [R || S || V]; the recovery byte is
		// dropped for verification.
		if len(sig) != crypto.SignatureLength {
			return false
		}
		digest := crypto.Keccak256(message)
		return crypto.VerifySignature(publicKey, digest, sig[:64])

	default:
		return false
	}
}

// AddressForPublicKey derives the 20-byte author identity a public key speaks
// for. SECP256K1 keys map to their Ethereum address; ED25519 keys map to the
// trailing 20 bytes of the SHA-256 of the raw key.
func AddressForPublicKey(scheme interfaces.SignatureScheme, publicKey []byte) (interfaces.OwnerAddress, error) {
	switch scheme {
	case interfaces.SchemeED25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return interfaces.OwnerAddress{}, fmt.Errorf("invalid ed25519 public key length %d", len(publicKey))
		}
		sum := sha256.Sum256(publicKey)
		return interfaces.NewOwnerAddressFromBytes(sum[12:])

	case interfaces.SchemeSECP256K1:
		pub, err := crypto.UnmarshalPubkey(publicKey)
		if err != nil {
			return interfaces.OwnerAddress{}, fmt.Errorf("invalid secp256k1 public key: %w", err)
		}
		return interfaces.NewOwnerAddressFromBytes(crypto.PubkeyToAddress(*pub).Bytes())

	default:
		return interfaces.OwnerAddress{}, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedScheme, scheme)
	}
}

// Report is the outcome of a full certificate examination, split by check so
// callers can present a precise diagnosis instead of an opaque "invalid".
type Report struct {
	StructureOK bool `json:"structure_ok"`
	HashOK      bool `json:"hash_ok"`
	SignatureOK bool `json:"signature_ok"`
	DatasetOK   bool `json:"dataset_ok"`
}

// Valid reports whether every applicable check passed.
func (r Report) Valid() bool {
	return r.StructureOK && r.HashOK && r.SignatureOK && r.DatasetOK
}

// Examine runs the complete verification pipeline over a fetched certificate
// and a candidate file: structural validation, artifact hash recomputation,
// signature verification over all proofs, and dataset root consistency when
// a dataset section is present.
func Examine(cert *interfaces.Certificate, fileBytes []byte) Report {
	report := Report{DatasetOK: true}

	report.StructureOK = certificate.ValidateStructure(cert)
	if !report.StructureOK {
		return report
	}

	report.HashOK = certificate.MatchesFile(cert, fileBytes)

	report.SignatureOK = len(cert.Proofs) > 0
	for _, proof := range cert.Proofs {
		if !Verify(cert, proof) {
			report.SignatureOK = false
			break
		}
	}

	if cert.Dataset != nil {
		report.DatasetOK = certificate.VerifyDatasetRoot(cert)
	}

	return report
}
