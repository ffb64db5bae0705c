package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/store"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

type SavedStore interface {
	CreateSavedResult(ctx context.Context, result *models.SavedResult) error
	ListSavedResults(ctx context.Context, filter store.SavedResultFilter) ([]*models.SavedResult, error)
	UpdateSavedResult(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, upd store.SavedResultUpdate) (*models.SavedResult, error)
	DeleteSavedResult(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error)
}

type SavedHandler struct {
	store SavedStore
}

func NewSavedHandler(s SavedStore) *SavedHandler {
	return &SavedHandler{store: s}
}

// List handles GET /api/v1/saved?type=. Only "person" and "company" filter;
// any other value is ignored.
func (h *SavedHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	results, err := h.store.ListSavedResults(r.Context(), store.SavedResultFilter{
		OwnerID:    userID,
		ResultType: r.URL.Query().Get("type"),
	})
	if err != nil {
		internalError(w, r, "failed to fetch saved results", err)
		return
	}
	response.Data(w, results)
}

// Create handles POST /api/v1/saved.
func (h *SavedHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		ResultType string          `json:"resultType"`
		ResultData json.RawMessage `json:"resultData"`
		Tags       []string        `json:"tags"`
		Notes      *string         `json:"notes"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}

	if req.ResultType == "" || isFalsyJSON(req.ResultData) {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing required fields")
		return
	}
	if !models.ValidResultType(req.ResultType) {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid result type")
		return
	}

	result := &models.SavedResult{
		ID:         uuid.New(),
		OwnerID:    userID,
		ResultType: req.ResultType,
		ResultData: req.ResultData,
		Tags:       req.Tags,
		Notes:      emptyToNil(req.Notes),
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.CreateSavedResult(r.Context(), result); err != nil {
		internalError(w, r, "failed to save result", err)
		return
	}
	response.Data(w, result)
}

// Update handles PATCH /api/v1/saved/{id}. Only fields present in the body
// are changed; an explicit null clears notes.
func (h *SavedHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}

	var upd store.SavedResultUpdate
	if raw, ok := fields["tags"]; ok {
		upd.HasTags = true
		if err := json.Unmarshal(raw, &upd.Tags); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tags must be an array of strings")
			return
		}
	}
	if raw, ok := fields["notes"]; ok {
		upd.HasNotes = true
		if err := json.Unmarshal(raw, &upd.Notes); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "notes must be a string or null")
			return
		}
	}

	result, err := h.store.UpdateSavedResult(r.Context(), id, userID, upd)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Saved result not found")
		return
	}
	if err != nil {
		internalError(w, r, "failed to update saved result", err)
		return
	}
	response.Data(w, result)
}

// Delete handles DELETE /api/v1/saved/{id}. Deleting a row the caller does
// not own succeeds without effect.
func (h *SavedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteSavedResult(r.Context(), id, userID); err != nil {
		internalError(w, r, "failed to delete saved result", err)
		return
	}
	response.JSON(w, map[string]bool{"success": true})
}

// isFalsyJSON reports whether raw is absent, null, false, an empty string
// or zero. None of those count as a saved payload.
func isFalsyJSON(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", `""`:
		return true
	}
	var n float64
	return json.Unmarshal(raw, &n) == nil && n == 0
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
