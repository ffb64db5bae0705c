package store

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// MaxPage keeps Offset within a 32-bit int at the largest limit.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// Store is the data access interface. All database operations go through here,
// and every method that touches user data is scoped by the owner's id.
type Store interface {
	Ping(ctx context.Context) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)

	GetActiveCredential(ctx context.Context, ownerID uuid.UUID) (*models.Credential, error)
	DeactivateCredentials(ctx context.Context, ownerID uuid.UUID) error
	CreateCredential(ctx context.Context, cred *models.Credential) error
	TouchCredential(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error

	CreateHistoryEntry(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, filter HistoryFilter) ([]*models.HistoryEntry, int, error)
	DeleteHistoryEntry(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error)

	CreateSavedResult(ctx context.Context, result *models.SavedResult) error
	ListSavedResults(ctx context.Context, filter SavedResultFilter) ([]*models.SavedResult, error)
	UpdateSavedResult(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, upd SavedResultUpdate) (*models.SavedResult, error)
	DeleteSavedResult(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error)
}

type HistoryFilter struct {
	OwnerID uuid.UUID
	Page    int
	Limit   int
}

// Normalize applies the default page (1) and limit (20, capped at 100).
// Pages past MaxPage are clamped to it; they are empty anyway.
func (f HistoryFilter) Normalize() HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	return f
}

// Offset is the number of rows skipped before the requested page.
func (f HistoryFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// SavedResultFilter narrows a saved-result listing. ResultType is applied
// only when it names a known type; any other value lists everything.
type SavedResultFilter struct {
	OwnerID    uuid.UUID
	ResultType string
}

// SavedResultUpdate carries a partial update. Only fields whose Has flag is
// set are written.
type SavedResultUpdate struct {
	Tags     []string
	HasTags  bool
	Notes    *string
	HasNotes bool
}
