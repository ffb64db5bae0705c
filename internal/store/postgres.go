package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Profiles ---

func (s *PostgresStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM profiles WHERE id = $1`, userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// --- Credentials ---

func (s *PostgresStore) GetActiveCredential(ctx context.Context, ownerID uuid.UUID) (*models.Credential, error) {
	var c models.Credential
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, encrypted_key, is_active, last_used_at, created_at
		 FROM api_keys WHERE user_id = $1 AND is_active LIMIT 1`, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.EncryptedKey, &c.IsActive, &c.LastUsedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active credential: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) DeactivateCredentials(ctx context.Context, ownerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE user_id = $1 AND is_active`, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCredential(ctx context.Context, cred *models.Credential) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, encrypted_key, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		cred.ID, cred.OwnerID, cred.EncryptedKey, cred.IsActive, cred.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchCredential(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1 AND user_id = $2 AND is_active`, id, ownerID)
	if err != nil {
		return fmt.Errorf("touch credential: %w", err)
	}
	return nil
}

// --- Search History ---

func (s *PostgresStore) CreateHistoryEntry(ctx context.Context, entry *models.HistoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_history (id, user_id, tool_name, query_params, result_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.OwnerID, entry.ToolName, []byte(entry.QueryParams), entry.ResultCount, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, filter HistoryFilter) ([]*models.HistoryEntry, int, error) {
	filter = filter.Normalize()

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM search_history WHERE user_id = $1`, filter.OwnerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, tool_name, query_params, result_count, created_at
		 FROM search_history WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		filter.OwnerID, filter.Limit, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []*models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var params []byte
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.ToolName, &params, &e.ResultCount, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan history entry: %w", err)
		}
		e.QueryParams = params
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}

func (s *PostgresStore) DeleteHistoryEntry(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM search_history WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete history entry: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Saved Results ---

const savedResultColumns = `id, user_id, result_type, result_data, tags, notes, created_at`

func (s *PostgresStore) CreateSavedResult(ctx context.Context, result *models.SavedResult) error {
	tags := result.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_results (id, user_id, result_type, result_data, tags, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID, result.OwnerID, result.ResultType, []byte(result.ResultData), tags, result.Notes, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("create saved result: %w", err)
	}
	result.Tags = tags
	return nil
}

func (s *PostgresStore) ListSavedResults(ctx context.Context, filter SavedResultFilter) ([]*models.SavedResult, error) {
	query := `SELECT ` + savedResultColumns + ` FROM saved_results WHERE user_id = $1`
	args := []any{filter.OwnerID}

	// Unknown types are ignored rather than rejected.
	if models.ValidResultType(filter.ResultType) {
		query += ` AND result_type = $2`
		args = append(args, filter.ResultType)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list saved results: %w", err)
	}
	defer rows.Close()

	results := []*models.SavedResult{}
	for rows.Next() {
		r, err := scanSavedResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStore) UpdateSavedResult(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, upd SavedResultUpdate) (*models.SavedResult, error) {
	query := `UPDATE saved_results SET id = id`
	args := []any{id, ownerID}
	argIdx := 3

	if upd.HasTags {
		tags := upd.Tags
		if tags == nil {
			tags = []string{}
		}
		query += fmt.Sprintf(", tags = $%d", argIdx)
		args = append(args, tags)
		argIdx++
	}
	if upd.HasNotes {
		query += fmt.Sprintf(", notes = $%d", argIdx)
		args = append(args, upd.Notes)
		argIdx++
	}
	query += ` WHERE id = $1 AND user_id = $2 RETURNING ` + savedResultColumns

	r, err := scanSavedResult(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update saved result: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) DeleteSavedResult(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_results WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete saved result: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSavedResult(row pgx.Row) (*models.SavedResult, error) {
	var r models.SavedResult
	var data []byte
	if err := row.Scan(&r.ID, &r.OwnerID, &r.ResultType, &data, &r.Tags, &r.Notes, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan saved result: %w", err)
	}
	r.ResultData = data
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return &r, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
