// Package certhandler serves the certificate endpoints: submission of signed
// certificates, retrieval by locator, artifact blob storage, and full
// verification of a certificate against a candidate file.
package certhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/attestry/provenance-backend/api"
	"github.com/attestry/provenance-backend/certificate"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/metrics"
	"github.com/attestry/provenance-backend/signature"
	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds request bodies; artifacts above this belong in the blob
// endpoints with streaming clients.
const maxBodySize = 64 << 20

// Handler processes certificate API requests backed by a blob store.
type Handler struct {
	store interfaces.BlobStore
	log   *slog.Logger
}

// NewHandler creates a certificate handler.
func NewHandler(store interfaces.BlobStore, log *slog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// RegisterRoutes mounts the certificate endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/certificates", h.HandleSubmit)
	r.Get("/api/certificates/{locator}", h.HandleFetch)
	r.Post("/api/certificates/verify", h.HandleVerify)
	r.Post("/api/blobs", h.HandleSubmitBlob)
	r.Get("/api/blobs/{locator}", h.HandleFetchBlob)
}

// HandleSubmit accepts a signed certificate, verifies it, and persists it.
// Certificates failing structural validation or signature verification are
// rejected; this server never stores a certificate it cannot verify.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	cert, err := certificate.Decode(raw)
	if err != nil {
		metrics.CertificatesRejected.WithLabelValues("malformed").Inc()
		http.Error(w, fmt.Errorf("invalid certificate: %w", err).Error(), http.StatusBadRequest)
		return
	}

	if !certificate.ValidateStructure(cert) {
		metrics.CertificatesRejected.WithLabelValues("structure").Inc()
		http.Error(w, "certificate failed structural validation", http.StatusUnprocessableEntity)
		return
	}
	for _, proof := range cert.Proofs {
		if !signature.Verify(cert, proof) {
			metrics.CertificatesRejected.WithLabelValues("signature").Inc()
			http.Error(w, "certificate signature verification failed", http.StatusUnprocessableEntity)
			return
		}
	}

	// Re-encode so storage holds the canonical persisted form, not whatever
	// whitespace the client sent.
	stored, err := certificate.Encode(cert)
	if err != nil {
		http.Error(w, "failed to encode certificate", http.StatusInternalServerError)
		return
	}

	locator, err := h.store.Put(r.Context(), stored, interfaces.CertificateKind)
	if err != nil {
		h.log.Error("failed to store certificate", "err", err)
		http.Error(w, "failed to store certificate", http.StatusBadGateway)
		return
	}

	metrics.CertificatesStored.Inc()
	h.log.Info("stored certificate",
		slog.String("locator", locator.String()),
		slog.String("author", cert.Author.String()),
		slog.String("type", cert.Type))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.SubmitCertificateResponse{CertLocator: locator.String()})
}

// HandleFetch returns a stored certificate by locator.
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	locator, err := url.PathUnescape(chi.URLParam(r, "locator"))
	if err != nil {
		http.Error(w, "invalid locator", http.StatusBadRequest)
		return
	}

	data, err := h.store.Get(r.Context(), interfaces.BlobLocator(locator))
	if errors.Is(err, interfaces.ErrContentNotFound) {
		http.Error(w, "certificate not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to fetch certificate", "err", err, slog.String("locator", locator))
		http.Error(w, "failed to fetch certificate", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// HandleVerify runs the full examination pipeline over a submitted
// certificate and candidate file, returning the per-check report. The file
// comes either inline or by blob locator.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, fmt.Errorf("invalid verify request: %w", err).Error(), http.StatusBadRequest)
		return
	}
	if req.Certificate == nil {
		http.Error(w, "certificate is required", http.StatusBadRequest)
		return
	}

	fileBytes := req.FileBytes
	if len(fileBytes) == 0 && req.BlobLocator != "" {
		data, err := h.store.Get(r.Context(), interfaces.BlobLocator(req.BlobLocator))
		if errors.Is(err, interfaces.ErrContentNotFound) {
			http.Error(w, "blob not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to fetch blob", http.StatusBadGateway)
			return
		}
		fileBytes = data
	}

	report := signature.Examine(req.Certificate, fileBytes)
	outcome := "invalid"
	if report.Valid() {
		outcome = "valid"
	}
	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.VerifyResponse{Valid: report.Valid(), Report: report})
}

// HandleSubmitBlob stores an artifact payload, plaintext or ciphertext.
func (h *Handler) HandleSubmitBlob(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty blob", http.StatusBadRequest)
		return
	}

	locator, err := h.store.Put(r.Context(), data, interfaces.PayloadKind)
	if err != nil {
		h.log.Error("failed to store blob", "err", err)
		http.Error(w, "failed to store blob", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.SubmitBlobResponse{BlobLocator: locator.String(), Size: len(data)})
}

// HandleFetchBlob returns a stored artifact payload by locator.
func (h *Handler) HandleFetchBlob(w http.ResponseWriter, r *http.Request) {
	locator, err := url.PathUnescape(chi.URLParam(r, "locator"))
	if err != nil {
		http.Error(w, "invalid locator", http.StatusBadRequest)
		return
	}

	data, err := h.store.Get(r.Context(), interfaces.BlobLocator(locator))
	if errors.Is(err, interfaces.ErrContentNotFound) {
		http.Error(w, "blob not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to fetch blob", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}
