package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the identity provider's user profile row. Read-only here.
type Profile struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	FullName  *string   `db:"full_name"  json:"full_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
