// Package vault stores each user's provider API key encrypted at rest and
// hands the plaintext back only to the request that needs it.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/internal/store"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

var (
	ErrInvalidInput          = errors.New("invalid api key")
	ErrEncryptionUnavailable = errors.New("encryption key not configured")
	ErrDecryptionFailed      = errors.New("credential decryption failed")
)

// CredentialStore is the slice of the data store the vault needs.
type CredentialStore interface {
	GetActiveCredential(ctx context.Context, ownerID uuid.UUID) (*models.Credential, error)
	DeactivateCredentials(ctx context.Context, ownerID uuid.UUID) error
	CreateCredential(ctx context.Context, cred *models.Credential) error
	TouchCredential(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
}

// Vault encrypts, stores and decrypts one active credential per owner.
type Vault struct {
	store  CredentialStore
	cipher *Cipher
}

// New creates a Vault. A nil cipher makes every Save and Get fail with
// ErrEncryptionUnavailable.
func New(s CredentialStore, c *Cipher) *Vault {
	return &Vault{store: s, cipher: c}
}

// Save encrypts plaintext and makes it the owner's only active credential.
// Prior active rows are deactivated, not deleted. The two writes are not
// atomic; a failure between them leaves the owner with no active credential.
func (v *Vault) Save(ctx context.Context, ownerID uuid.UUID, plaintext string) (uuid.UUID, error) {
	if strings.TrimSpace(plaintext) == "" {
		return uuid.Nil, ErrInvalidInput
	}
	if v.cipher == nil {
		return uuid.Nil, ErrEncryptionUnavailable
	}

	sealed, err := v.cipher.Encrypt(plaintext)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encrypting credential: %w", err)
	}

	if err := v.store.DeactivateCredentials(ctx, ownerID); err != nil {
		return uuid.Nil, fmt.Errorf("deactivating previous credentials: %w", err)
	}

	cred := &models.Credential{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		EncryptedKey: sealed,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := v.store.CreateCredential(ctx, cred); err != nil {
		return uuid.Nil, fmt.Errorf("storing credential: %w", err)
	}

	return cred.ID, nil
}

// Get returns the owner's decrypted credential. ok is false when none is
// configured. A stored value that cannot be decrypted is an error, never
// reported as "none".
func (v *Vault) Get(ctx context.Context, ownerID uuid.UUID) (plaintext string, ok bool, err error) {
	if v.cipher == nil {
		return "", false, ErrEncryptionUnavailable
	}

	cred, err := v.store.GetActiveCredential(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading credential: %w", err)
	}

	plaintext, err = v.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		slog.Error("credential decryption failed",
			"user_id", ownerID,
			"credential_id", cred.ID,
			"error", err,
		)
		return "", false, err
	}

	if err := v.store.TouchCredential(ctx, cred.ID, ownerID); err != nil {
		slog.Warn("failed to stamp credential last_used_at",
			"user_id", ownerID,
			"credential_id", cred.ID,
			"error", err,
		)
	}

	return plaintext, true, nil
}

// Status returns the active credential's metadata without decrypting it,
// or nil when the owner has none.
func (v *Vault) Status(ctx context.Context, ownerID uuid.UUID) (*models.Credential, error) {
	cred, err := v.store.GetActiveCredential(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential status: %w", err)
	}
	return cred, nil
}
