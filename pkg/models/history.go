package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry records one successful proxied provider call.
// QueryParams is kept as the raw JSON the caller sent.
type HistoryEntry struct {
	ID          uuid.UUID       `db:"id"           json:"id"`
	OwnerID     uuid.UUID       `db:"user_id"      json:"user_id"`
	ToolName    string          `db:"tool_name"    json:"tool_name"`
	QueryParams json.RawMessage `db:"query_params" json:"query_params"`
	ResultCount int             `db:"result_count" json:"result_count"`
	CreatedAt   time.Time       `db:"created_at"   json:"created_at"`
}
