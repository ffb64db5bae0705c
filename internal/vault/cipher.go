package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32 // AES-256
	separator = ":"
	hkdfInfo  = "prospector credential vault v1"
)

// Cipher seals short secrets with AES-256-GCM under a key derived from the
// process master secret. Sealed values have the form hex(nonce):hex(ciphertext).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 32-byte key from secret with HKDF-SHA256. The same
// secret always yields the same key, so values sealed before a restart stay
// readable afterwards.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEncryptionUnavailable
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrEncryptionUnavailable
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + separator + hex.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any malformed, truncated or
// tampered input, or a key mismatch, yields ErrDecryptionFailed.
func (c *Cipher) Decrypt(value string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrEncryptionUnavailable
	}

	nonceHex, sealedHex, ok := strings.Cut(value, separator)
	if !ok {
		return "", fmt.Errorf("%w: missing separator", ErrDecryptionFailed)
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce", ErrDecryptionFailed)
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrDecryptionFailed)
	}

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}
