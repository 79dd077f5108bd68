// Package sharehandler exposes a key server over HTTP: encryption key
// discovery, share escrow, and policy-gated share release.
package sharehandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/attestry/provenance-backend/api"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/metrics"
	"github.com/go-chi/chi/v5"
)

const maxBodySize = 1 << 20

// Handler adapts a key server to the HTTP API.
type Handler struct {
	server interfaces.KeyServer
	log    *slog.Logger
}

// NewHandler creates a share handler around a key server.
func NewHandler(server interfaces.KeyServer, log *slog.Logger) *Handler {
	return &Handler{server: server, log: log}
}

// RegisterRoutes mounts the key-server endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/keyserver/pubkey", h.HandleEncryptionKey)
	r.Post("/api/keyserver/escrow/{key_id}", h.HandleEscrow)
	r.Post("/api/keyserver/share/{key_id}", h.HandleShareRequest)
}

// HandleEncryptionKey returns the public key shares must be sealed to.
func (h *Handler) HandleEncryptionKey(w http.ResponseWriter, r *http.Request) {
	pub, err := h.server.EncryptionKey(r.Context())
	if err != nil {
		http.Error(w, "encryption key unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.EncryptionKeyResponse{Name: h.server.Name(), PublicKey: pub})
}

// HandleEscrow stores a sealed share under the key identity in the path.
func (h *Handler) HandleEscrow(w http.ResponseWriter, r *http.Request) {
	keyID, err := interfaces.NewKeyIDFromHex(chi.URLParam(r, "key_id"))
	if err != nil {
		http.Error(w, fmt.Errorf("invalid key id: %w", err).Error(), http.StatusBadRequest)
		return
	}

	var req api.EscrowShareRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, fmt.Errorf("invalid escrow request: %w", err).Error(), http.StatusBadRequest)
		return
	}

	if err := h.server.EscrowShare(r.Context(), keyID, req.SealedShare, req.Owner, req.Policy); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleShareRequest validates the submitted session proof and token and
// releases the share. Policy failures map to 403, expired sessions to 401,
// unknown keys to 404.
func (h *Handler) HandleShareRequest(w http.ResponseWriter, r *http.Request) {
	keyID, err := interfaces.NewKeyIDFromHex(chi.URLParam(r, "key_id"))
	if err != nil {
		http.Error(w, fmt.Errorf("invalid key id: %w", err).Error(), http.StatusBadRequest)
		return
	}

	var req api.ShareRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, fmt.Errorf("invalid share request: %w", err).Error(), http.StatusBadRequest)
		return
	}

	share, err := h.server.RequestKeyShare(r.Context(), keyID, req.Token, req.Session)
	if err != nil {
		status := http.StatusInternalServerError
		reason := "internal"
		switch {
		case errors.Is(err, interfaces.ErrAccessDenied):
			status, reason = http.StatusForbidden, "policy"
		case errors.Is(err, interfaces.ErrSessionExpired):
			status, reason = http.StatusUnauthorized, "session_expired"
		case errors.Is(err, interfaces.ErrShareNotFound):
			status, reason = http.StatusNotFound, "not_found"
		}
		metrics.SharesDenied.WithLabelValues(reason).Inc()
		h.log.Info("share request refused",
			slog.String("key_id", keyID.String()),
			slog.String("reason", reason))
		http.Error(w, err.Error(), status)
		return
	}

	metrics.SharesReleased.Inc()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.ShareResponse{Share: share})
}
