package sharehandler

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/attestry/provenance-backend/api/clients"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/keyserver"
	"github.com/attestry/provenance-backend/signature"
	"github.com/attestry/provenance-backend/thresholdenc"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests exercise the full HTTP round trip: the key-server client from
// clients/ against the handler wrapping an in-process key server.
func newRemoteServer(t *testing.T) *clients.KeyServerClient {
	t.Helper()

	server, err := keyserver.New("remote-test", slog.Default())
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(server, slog.Default()).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return clients.NewKeyServerClient("remote-test", srv.URL)
}

func TestShareLifecycleOverHTTP(t *testing.T) {
	client := newRemoteServer(t)
	assert.Equal(t, "remote-test", client.Name())

	owner, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	session, err := thresholdenc.EstablishSession(context.Background(), owner, 0)
	require.NoError(t, err)

	keyID, err := thresholdenc.DeriveIdentity(owner.Address(), []byte("http-nonce"))
	require.NoError(t, err)

	pub, err := client.EncryptionKey(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, pub)

	share := []byte("escrowed share")
	sealed, err := thresholdenc.SealShare(pub, share, keyID)
	require.NoError(t, err)

	policy := interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly}
	require.NoError(t, client.EscrowShare(context.Background(), keyID, sealed, owner.Address(), policy))

	token, err := thresholdenc.NewAuthorizationToken(owner.Address(), keyID).Encode()
	require.NoError(t, err)

	released, err := client.RequestKeyShare(context.Background(), keyID, token, session)
	require.NoError(t, err)
	assert.Equal(t, share, released)
}

func TestShareRequest_ErrorMapping(t *testing.T) {
	client := newRemoteServer(t)

	owner, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	session, err := thresholdenc.EstablishSession(context.Background(), owner, 0)
	require.NoError(t, err)

	keyID, err := thresholdenc.DeriveIdentity(owner.Address(), []byte("mapping-nonce"))
	require.NoError(t, err)
	token, err := thresholdenc.NewAuthorizationToken(owner.Address(), keyID).Encode()
	require.NoError(t, err)

	// Nothing escrowed yet: 404 maps back to ErrShareNotFound.
	_, err = client.RequestKeyShare(context.Background(), keyID, token, session)
	assert.ErrorIs(t, err, interfaces.ErrShareNotFound)

	pub, err := client.EncryptionKey(context.Background())
	require.NoError(t, err)
	sealed, err := thresholdenc.SealShare(pub, []byte("share"), keyID)
	require.NoError(t, err)
	require.NoError(t, client.EscrowShare(context.Background(), keyID, sealed, owner.Address(),
		interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly}))

	// Stranger with a valid session: 403 maps back to ErrAccessDenied.
	stranger, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	strangerSession, err := thresholdenc.EstablishSession(context.Background(), stranger, 0)
	require.NoError(t, err)
	strangerToken, err := thresholdenc.NewAuthorizationToken(stranger.Address(), keyID).Encode()
	require.NoError(t, err)
	_, err = client.RequestKeyShare(context.Background(), keyID, strangerToken, strangerSession)
	assert.ErrorIs(t, err, interfaces.ErrAccessDenied)

	// Expired session: 401 maps back to ErrSessionExpired.
	expired := session
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	_, err = client.RequestKeyShare(context.Background(), keyID, token, expired)
	assert.ErrorIs(t, err, interfaces.ErrSessionExpired)
}

func TestQuorumDecryptionOverHTTP(t *testing.T) {
	servers := []interfaces.KeyServer{
		newRemoteServer(t),
		newRemoteServer(t),
		newRemoteServer(t),
	}

	protocol, err := thresholdenc.New(thresholdenc.Config{
		Threshold:    2,
		KeyServers:   servers,
		ShareTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	owner, err := signature.GenerateED25519Signer()
	require.NoError(t, err)
	session, err := thresholdenc.EstablishSession(context.Background(), owner, 0)
	require.NoError(t, err)

	plaintext := []byte("payload encrypted across remote key servers")
	ciphertext, info, err := protocol.Encrypt(context.Background(), plaintext, owner.Address(),
		interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly})
	require.NoError(t, err)

	token, err := thresholdenc.NewAuthorizationToken(owner.Address(), info.KeyID).Encode()
	require.NoError(t, err)

	recovered, err := protocol.Decrypt(context.Background(), ciphertext, token, session)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}
