package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/store"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

type HistoryStore interface {
	ListHistory(ctx context.Context, filter store.HistoryFilter) ([]*models.HistoryEntry, int, error)
	DeleteHistoryEntry(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error)
}

type HistoryHandler struct {
	store HistoryStore
}

func NewHistoryHandler(s HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// List handles GET /api/v1/history?page=&limit=. Unparseable or
// non-positive values fall back to the defaults.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.HistoryFilter{
		OwnerID: userID,
		Page:    atoiOrZero(q.Get("page")),
		Limit:   atoiOrZero(q.Get("limit")),
	}.Normalize()

	entries, total, err := h.store.ListHistory(r.Context(), filter)
	if err != nil {
		internalError(w, r, "failed to fetch search history", err)
		return
	}

	response.Collection(w, entries, response.Pagination{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	})
}

// Delete handles DELETE /api/v1/history/{id}. Deleting a row the caller does
// not own succeeds without effect.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteHistoryEntry(r.Context(), id, userID); err != nil {
		internalError(w, r, "failed to delete history item", err)
		return
	}
	response.JSON(w, map[string]bool{"success": true})
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
