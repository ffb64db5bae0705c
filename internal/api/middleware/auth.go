package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/identity"
)

const unauthenticatedMessage = "Missing or invalid authentication token"

// Auth provides session authentication middleware.
type Auth struct {
	verifier identity.Verifier
}

// NewAuth creates a new Auth middleware.
func NewAuth(v identity.Verifier) *Auth {
	return &Auth{verifier: v}
}

// Authenticate validates the Bearer token and sets user_id in the request
// context. Every rejection gets the same 401 body.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthenticated(w)
			return
		}

		userID, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			slog.Debug("token rejected",
				"error", err,
				"request_id", GetRequestID(r.Context()),
			)
			unauthenticated(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), userID)))
	})
}

func unauthenticated(w http.ResponseWriter) {
	response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", unauthenticatedMessage)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
