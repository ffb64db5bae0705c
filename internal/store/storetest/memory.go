// Package storetest provides an in-memory store.Store for handler and
// service tests. It mirrors the ownership and ordering rules of the
// Postgres implementation.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/internal/store"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

// Memory is a concurrency-safe in-memory store. When Err is set every
// method returns it.
type Memory struct {
	mu sync.Mutex

	profiles map[uuid.UUID]models.Profile
	creds    []models.Credential
	history  []models.HistoryEntry
	saved    []models.SavedResult

	Err error
}

var _ store.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{profiles: make(map[uuid.UUID]models.Profile)}
}

// AddProfile seeds a profile row.
func (m *Memory) AddProfile(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// ActiveCredentials counts the owner's active credential rows.
func (m *Memory) ActiveCredentials(ownerID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.creds {
		if c.OwnerID == ownerID && c.IsActive {
			n++
		}
	}
	return n
}

func (m *Memory) Ping(_ context.Context) error { return m.Err }

func (m *Memory) GetProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// --- Credentials ---

func (m *Memory) GetActiveCredential(_ context.Context, ownerID uuid.UUID) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.creds {
		if c.OwnerID == ownerID && c.IsActive {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) DeactivateCredentials(_ context.Context, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.creds {
		if m.creds[i].OwnerID == ownerID {
			m.creds[i].IsActive = false
		}
	}
	return nil
}

func (m *Memory) CreateCredential(_ context.Context, cred *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if cred.IsActive {
		for _, c := range m.creds {
			if c.OwnerID == cred.OwnerID && c.IsActive {
				return store.ErrDuplicateKey
			}
		}
	}
	m.creds = append(m.creds, *cred)
	return nil
}

func (m *Memory) TouchCredential(_ context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	now := time.Now().UTC()
	for i := range m.creds {
		if m.creds[i].ID == id && m.creds[i].OwnerID == ownerID && m.creds[i].IsActive {
			m.creds[i].LastUsedAt = &now
		}
	}
	return nil
}

// --- Search History ---

func (m *Memory) CreateHistoryEntry(_ context.Context, entry *models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.history = append(m.history, *entry)
	return nil
}

func (m *Memory) ListHistory(_ context.Context, filter store.HistoryFilter) ([]*models.HistoryEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	filter = filter.Normalize()

	var owned []models.HistoryEntry
	for _, e := range m.history {
		if e.OwnerID == filter.OwnerID {
			owned = append(owned, e)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID.String() > owned[j].ID.String()
	})

	out := []*models.HistoryEntry{}
	for i := filter.Offset(); i < len(owned) && len(out) < filter.Limit; i++ {
		e := owned[i]
		out = append(out, &e)
	}
	return out, len(owned), nil
}

func (m *Memory) DeleteHistoryEntry(_ context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.history[:0]
	var n int64
	for _, e := range m.history {
		if e.ID == id && e.OwnerID == ownerID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.history = kept
	return n, nil
}

// --- Saved Results ---

func (m *Memory) CreateSavedResult(_ context.Context, result *models.SavedResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	m.saved = append(m.saved, *result)
	return nil
}

func (m *Memory) ListSavedResults(_ context.Context, filter store.SavedResultFilter) ([]*models.SavedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	typed := models.ValidResultType(filter.ResultType)

	out := []*models.SavedResult{}
	for _, r := range m.saved {
		if r.OwnerID != filter.OwnerID {
			continue
		}
		if typed && r.ResultType != filter.ResultType {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateSavedResult(_ context.Context, id uuid.UUID, ownerID uuid.UUID, upd store.SavedResultUpdate) (*models.SavedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.saved {
		r := &m.saved[i]
		if r.ID != id || r.OwnerID != ownerID {
			continue
		}
		if upd.HasTags {
			r.Tags = upd.Tags
			if r.Tags == nil {
				r.Tags = []string{}
			}
		}
		if upd.HasNotes {
			r.Notes = upd.Notes
		}
		out := *r
		return &out, nil
	}
	return nil, store.ErrNotFound
}

func (m *Memory) DeleteSavedResult(_ context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.saved[:0]
	var n int64
	for _, r := range m.saved {
		if r.ID == id && r.OwnerID == ownerID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.saved = kept
	return n, nil
}
