package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/cache"
	"github.com/kiranshivaraju/prospector/internal/vault"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

// keyStatusTTL is short because last_used_at moves on every proxied call.
const keyStatusTTL = 30 * time.Second

// CredentialVault is what the credential routes need from the vault.
type CredentialVault interface {
	Save(ctx context.Context, ownerID uuid.UUID, plaintext string) (uuid.UUID, error)
	Status(ctx context.Context, ownerID uuid.UUID) (*models.Credential, error)
}

type APIKeyHandler struct {
	vault CredentialVault
	cache cache.Cache
}

func NewAPIKeyHandler(v CredentialVault, c cache.Cache) *APIKeyHandler {
	return &APIKeyHandler{vault: v, cache: c}
}

type keyStatusResponse struct {
	HasKey  bool               `json:"hasKey"`
	KeyInfo *models.Credential `json:"keyInfo"`
}

// Status handles GET /api/v1/api-keys/status. The key itself is never
// decrypted here.
func (h *APIKeyHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	key := cache.KeyStatusKey(userID)
	var resp keyStatusResponse
	if cacheGet(r.Context(), h.cache, key, &resp) {
		response.JSON(w, resp)
		return
	}

	cred, err := h.vault.Status(r.Context(), userID)
	if err != nil {
		internalError(w, r, "failed to check api key status", err)
		return
	}

	resp = keyStatusResponse{HasKey: cred != nil, KeyInfo: cred}
	cacheSet(r.Context(), h.cache, key, resp, keyStatusTTL)
	response.JSON(w, resp)
}

// Save handles POST /api/v1/api-keys.
func (h *APIKeyHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid API key")
		return
	}

	id, err := h.vault.Save(r.Context(), userID, req.APIKey)
	if err != nil {
		if errors.Is(err, vault.ErrInvalidInput) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid API key")
			return
		}
		internalError(w, r, "failed to save api key", err)
		return
	}

	cacheDelete(r.Context(), h.cache, cache.KeyStatusKey(userID))
	response.JSON(w, map[string]any{"success": true, "keyId": id})
}
