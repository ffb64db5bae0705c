// Package identity verifies session tokens issued by the identity provider
// and resolves them to a stable user id.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every rejection reason: bad signature, expired,
// wrong audience, malformed subject. Callers are not told which.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier resolves a raw bearer token to the user it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// JWTVerifier validates HS256 access tokens signed with the identity
// provider's shared JWT secret. The "sub" claim carries the user id.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. When audience is non-empty the token's
// "aud" claim must contain it.
func NewJWTVerifier(secret, audience string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("identity: jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

var _ Verifier = (*JWTVerifier)(nil)
