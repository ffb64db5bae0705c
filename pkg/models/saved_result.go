package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ResultTypePerson  = "person"
	ResultTypeCompany = "company"
)

// ValidResultType reports whether t is one of the bookmarkable result types.
func ValidResultType(t string) bool {
	return t == ResultTypePerson || t == ResultTypeCompany
}

// SavedResult is a person or company record bookmarked by its owner.
type SavedResult struct {
	ID         uuid.UUID       `db:"id"          json:"id"`
	OwnerID    uuid.UUID       `db:"user_id"     json:"user_id"`
	ResultType string          `db:"result_type" json:"result_type"`
	ResultData json.RawMessage `db:"result_data" json:"result_data"`
	Tags       []string        `db:"tags"        json:"tags"`
	Notes      *string         `db:"notes"       json:"notes"`
	CreatedAt  time.Time       `db:"created_at"  json:"created_at"`
}
