package certhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/attestry/provenance-backend/api"
	"github.com/attestry/provenance-backend/certificate"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/signature"
	"github.com/attestry/provenance-backend/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, interfaces.BlobStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	handler := NewHandler(store, slog.Default())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func signedCert(t *testing.T, payload []byte) *interfaces.Certificate {
	t.Helper()
	signer, err := signature.GenerateED25519Signer()
	require.NoError(t, err)

	cert := certificate.New(signer.Address(), interfaces.TypeContent, payload,
		certificate.ArtifactParams{MediaType: "text/plain"}, time.Now())
	proof, err := signature.Sign(context.Background(), cert, signer)
	require.NoError(t, err)
	cert.Proofs = append(cert.Proofs, proof)
	return cert
}

func TestHandleSubmitAndFetch(t *testing.T) {
	srv, _ := newTestServer(t)
	cert := signedCert(t, []byte("artifact"))

	raw, err := certificate.Encode(cert)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/certificates", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var submitResp api.SubmitCertificateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitResp))
	require.NotEmpty(t, submitResp.CertLocator)

	fetchResp, err := http.Get(srv.URL + "/api/certificates/" + url.PathEscape(submitResp.CertLocator))
	require.NoError(t, err)
	defer fetchResp.Body.Close()
	require.Equal(t, http.StatusOK, fetchResp.StatusCode)

	var fetched interfaces.Certificate
	require.NoError(t, json.NewDecoder(fetchResp.Body).Decode(&fetched))
	assert.Equal(t, cert.Author, fetched.Author)
	assert.Equal(t, cert.Artifact.Digest, fetched.Artifact.Digest)
}

func TestHandleSubmit_RejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)

	// Malformed JSON.
	resp, err := http.Post(srv.URL+"/api/certificates", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unsigned certificate fails structural validation.
	unsigned := signedCert(t, []byte("x"))
	unsigned.Proofs = nil
	raw, err := certificate.Encode(unsigned)
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/api/certificates", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Tampered certificate fails signature verification.
	tampered := signedCert(t, []byte("x"))
	tampered.Timestamp++
	raw, err = certificate.Encode(tampered)
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/api/certificates", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleFetch_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/certificates/" + url.PathEscape("memory:cert/missing"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleVerify(t *testing.T) {
	srv, _ := newTestServer(t)
	payload := []byte("verified artifact")
	cert := signedCert(t, payload)

	body, err := json.Marshal(api.VerifyRequest{Certificate: cert, FileBytes: payload})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/certificates/verify", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verifyResp api.VerifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verifyResp))
	assert.True(t, verifyResp.Valid)
	assert.True(t, verifyResp.Report.HashOK)

	// Wrong file content: hash check fails.
	body, err = json.Marshal(api.VerifyRequest{Certificate: cert, FileBytes: []byte("different")})
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/api/certificates/verify", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verifyResp))
	assert.False(t, verifyResp.Valid)
	assert.False(t, verifyResp.Report.HashOK)
	assert.True(t, verifyResp.Report.SignatureOK)
}

func TestHandleVerify_ByBlobLocator(t *testing.T) {
	srv, store := newTestServer(t)
	payload := []byte("stored artifact")
	cert := signedCert(t, payload)

	locator, err := store.Put(context.Background(), payload, interfaces.PayloadKind)
	require.NoError(t, err)

	body, err := json.Marshal(api.VerifyRequest{Certificate: cert, BlobLocator: locator.String()})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/certificates/verify", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var verifyResp api.VerifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verifyResp))
	assert.True(t, verifyResp.Valid)
}

func TestBlobEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	data := []byte("blob content")

	resp, err := http.Post(srv.URL+"/api/blobs", "application/octet-stream", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var blobResp api.SubmitBlobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&blobResp))
	assert.Equal(t, len(data), blobResp.Size)

	fetchResp, err := http.Get(srv.URL + "/api/blobs/" + url.PathEscape(blobResp.BlobLocator))
	require.NoError(t, err)
	defer fetchResp.Body.Close()
	require.Equal(t, http.StatusOK, fetchResp.StatusCode)

	var fetched bytes.Buffer
	_, err = fetched.ReadFrom(fetchResp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, fetched.Bytes())
}
