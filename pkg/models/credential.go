// Package models contains shared data models used across the Prospector codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a user's stored provider API key. Only the ciphertext is
// persisted; at most one row per owner is active at a time.
type Credential struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	OwnerID      uuid.UUID  `db:"user_id"       json:"-"`
	EncryptedKey string     `db:"encrypted_key" json:"-"`
	IsActive     bool       `db:"is_active"     json:"is_active"`
	LastUsedAt   *time.Time `db:"last_used_at"  json:"last_used_at"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
}
