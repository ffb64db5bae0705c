package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/cache"
	"github.com/kiranshivaraju/prospector/internal/store"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

const profileTTL = 5 * time.Minute

type ProfileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type SessionHandler struct {
	profiles ProfileReader
	cache    cache.Cache
}

func NewSessionHandler(p ProfileReader, c cache.Cache) *SessionHandler {
	return &SessionHandler{profiles: p, cache: c}
}

type validateResponse struct {
	Valid   bool            `json:"valid"`
	UserID  uuid.UUID       `json:"userId"`
	Profile *models.Profile `json:"profile"`
}

// Validate handles POST /api/v1/auth/validate. Reaching it means the token
// already passed Authenticate; the profile is null when the identity
// provider has not created one yet.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	key := cache.ProfileKey(userID)
	var profile models.Profile
	if cacheGet(r.Context(), h.cache, key, &profile) {
		response.JSON(w, validateResponse{Valid: true, UserID: userID, Profile: &profile})
		return
	}

	p, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		internalError(w, r, "failed to load profile", err)
		return
	}
	if p != nil {
		cacheSet(r.Context(), h.cache, key, p, profileTTL)
	}

	response.JSON(w, validateResponse{Valid: true, UserID: userID, Profile: p})
}
