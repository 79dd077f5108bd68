package keyserver

import (
	"context"
	"testing"
	"time"

	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/signature"
	"github.com/attestry/provenance-backend/thresholdenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *Server
	owner   *signature.ED25519Signer
	session interfaces.SessionProof
	keyID   interfaces.KeyID
	share   []byte
}

func newFixture(t *testing.T, policy interfaces.AccessPolicy) *fixture {
	t.Helper()

	server, err := New("test-server", nil)
	require.NoError(t, err)

	owner, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	session, err := thresholdenc.EstablishSession(context.Background(), owner, 0)
	require.NoError(t, err)

	keyID, err := thresholdenc.DeriveIdentity(owner.Address(), []byte("fixture-nonce"))
	require.NoError(t, err)

	pub, err := server.EncryptionKey(context.Background())
	require.NoError(t, err)
	share := []byte("shamir share bytes")
	sealed, err := thresholdenc.SealShare(pub, share, keyID)
	require.NoError(t, err)
	require.NoError(t, server.EscrowShare(context.Background(), keyID, sealed, owner.Address(), policy))

	return &fixture{server: server, owner: owner, session: session, keyID: keyID, share: share}
}

func (f *fixture) token(t *testing.T, sender interfaces.OwnerAddress) []byte {
	t.Helper()
	raw, err := thresholdenc.NewAuthorizationToken(sender, f.keyID).Encode()
	require.NoError(t, err)
	return raw
}

func TestRequestKeyShare_OwnerSucceeds(t *testing.T) {
	f := newFixture(t, interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})

	share, err := f.server.RequestKeyShare(context.Background(), f.keyID, f.token(t, f.owner.Address()), f.session)
	require.NoError(t, err)
	assert.Equal(t, f.share, share, "released share must match the escrowed plaintext")
}

func TestRequestKeyShare_UnknownKey(t *testing.T) {
	f := newFixture(t, interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})

	otherID, err := thresholdenc.DeriveIdentity(f.owner.Address(), []byte("other-nonce"))
	require.NoError(t, err)
	otherToken, err := thresholdenc.NewAuthorizationToken(f.owner.Address(), otherID).Encode()
	require.NoError(t, err)

	_, err = f.server.RequestKeyShare(context.Background(), otherID, otherToken, f.session)
	assert.ErrorIs(t, err, interfaces.ErrShareNotFound)
}

func TestRequestKeyShare_ExpiredSession(t *testing.T) {
	f := newFixture(t, interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})

	f.server.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := f.server.RequestKeyShare(context.Background(), f.keyID, f.token(t, f.owner.Address()), f.session)
	assert.ErrorIs(t, err, interfaces.ErrSessionExpired)
}

func TestRequestKeyShare_PolicyDeniesStranger(t *testing.T) {
	f := newFixture(t, interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})

	stranger, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	strangerSession, err := thresholdenc.EstablishSession(context.Background(), stranger, 0)
	require.NoError(t, err)

	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, f.token(t, stranger.Address()), strangerSession)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)
}

func TestRequestKeyShare_AllowlistAdmits(t *testing.T) {
	reader, err := signature.GenerateED25519Signer()
	require.NoError(t, err)

	f := newFixture(t, interfaces.AccessPolicy{
		Mode:      interfaces.PolicyAllowlist,
		Allowlist: []interfaces.OwnerAddress{reader.Address()},
	})

	readerSession, err := thresholdenc.EstablishSession(context.Background(), reader, 0)
	require.NoError(t, err)

	share, err := f.server.RequestKeyShare(context.Background(), f.keyID, f.token(t, reader.Address()), readerSession)
	require.NoError(t, err)
	assert.Equal(t, f.share, share)
}

func TestRequestKeyShare_RejectsForgedSessions(t *testing.T) {
	f := newFixture(t, interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})
	ownerToken := f.token(t, f.owner.Address())

	// Signature from a different key than the claimed requester.
	impostor, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	forged := f.session
	forgedSig, err := impostor.Sign(context.Background(), forged.Challenge)
	require.NoError(t, err)
	forged.Signature = forgedSig
	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, ownerToken, forged)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)

	// Impostor's own key and signature, but the owner's requester address.
	forged = f.session
	forged.PublicKey = impostor.PublicKey()
	forged.Signature = forgedSig
	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, ownerToken, forged)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)

	// Challenge swapped out from under the signature.
	forged = f.session
	forged.Challenge = thresholdenc.BuildChallenge(f.owner.Address(), forged.ExpiresAt, "replayed")
	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, ownerToken, forged)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)
}

func TestRequestKeyShare_TokenChecks(t *testing.T) {
	f := newFixture(t, interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})

	// Token sender differs from the session requester.
	stranger, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, f.token(t, stranger.Address()), f.session)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)

	// Token authorizes a different key identity.
	otherID, err := thresholdenc.DeriveIdentity(f.owner.Address(), []byte("other"))
	require.NoError(t, err)
	wrongKeyToken, err := thresholdenc.NewAuthorizationToken(f.owner.Address(), otherID).Encode()
	require.NoError(t, err)
	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, wrongKeyToken, f.session)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)

	// Undecodable token.
	_, err = f.server.RequestKeyShare(context.Background(), f.keyID, []byte("junk"), f.session)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)
}

func TestEscrowShare_Validation(t *testing.T) {
	server, err := New("test-server", nil)
	require.NoError(t, err)
	owner, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	keyID, err := thresholdenc.DeriveIdentity(owner.Address(), []byte("n"))
	require.NoError(t, err)
	policy := interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly}

	assert.Error(t, server.EscrowShare(context.Background(), keyID, nil, owner.Address(), policy))
	assert.Error(t, server.EscrowShare(context.Background(), keyID, []byte("s"), owner.Address(),
		interfaces.AccessPolicy{Mode: "everyone"}))

	require.NoError(t, server.EscrowShare(context.Background(), keyID, []byte("s"), owner.Address(), policy))
	assert.Error(t, server.EscrowShare(context.Background(), keyID, []byte("s2"), owner.Address(), policy),
		"re-escrow must not overwrite an existing policy")
}
