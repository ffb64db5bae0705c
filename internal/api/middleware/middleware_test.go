package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/prospector/internal/api/middleware"
	"github.com/kiranshivaraju/prospector/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Verifier ---

type mockVerifier struct {
	tokens map[string]uuid.UUID
	calls  int
}

func (m *mockVerifier) Verify(_ context.Context, token string) (uuid.UUID, error) {
	m.calls++
	if id, ok := m.tokens[token]; ok {
		return id, nil
	}
	return uuid.Nil, identity.ErrInvalidToken
}

// --- Mock Cache ---

type mockCache struct {
	counter int64
	err     error
	keys    []string
}

func (m *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (m *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (m *mockCache) Delete(_ context.Context, _ string) error                          { return nil }
func (m *mockCache) Ping(_ context.Context) error                                      { return nil }
func (m *mockCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.keys = append(m.keys, key)
	m.counter++
	return m.counter, m.err
}

// --- helpers ---

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func withUser(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(mw.SetUserID(r.Context(), id))
}

// ========================================
// Auth Middleware Tests
// ========================================

func TestAuth_RejectionsAreIndistinguishable(t *testing.T) {
	v := &mockVerifier{tokens: map[string]uuid.UUID{"good": uuid.New()}}
	handler := mw.NewAuth(v).Authenticate(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic Zm9vOmJhcg=="},
		{"bearer without token", "Bearer "},
		{"rejected token", "Bearer expired-or-forged"},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "UNAUTHENTICATED", errBody(t, w)["code"])
			bodies = append(bodies, w.Body.String())
		})
	}

	require.Len(t, bodies, len(tests))
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestAuth_VerifierNotCalledWithoutBearer(t *testing.T) {
	v := &mockVerifier{}
	handler := mw.NewAuth(v).Authenticate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Token abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 0, v.calls)
}

func TestAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	v := &mockVerifier{tokens: map[string]uuid.UUID{"session-token": userID}}

	var gotID uuid.UUID
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = mw.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer session-token")
	w := httptest.NewRecorder()
	mw.NewAuth(v).Authenticate(inner).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotOK)
	assert.Equal(t, userID, gotID)
}

func TestGetUserID_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	_, ok := mw.GetUserID(req)
	assert.False(t, ok)
}

// ========================================
// Rate Limit Middleware Tests
// ========================================

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	mc := &mockCache{counter: 0}
	rl := mw.NewRateLimit(mc, 60)
	rl.SetClock(func() time.Time { return time.Unix(1_700_000_010, 0) })

	req := withUser(httptest.NewRequest(http.MethodGet, "/test", nil), uuid.New())
	w := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1700000040", w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	mc := &mockCache{counter: 60} // next IncrWithExpiry will return 61
	rl := mw.NewRateLimit(mc, 60)
	rl.SetClock(func() time.Time { return time.Unix(1_700_000_010, 0) })

	req := withUser(httptest.NewRequest(http.MethodGet, "/test", nil), uuid.New())
	w := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errBody(t, w)["code"])
}

func TestRateLimit_KeyedPerUserAndWindow(t *testing.T) {
	mc := &mockCache{}
	rl := mw.NewRateLimit(mc, 60)
	now := time.Unix(1_700_000_000, 0)
	rl.SetClock(func() time.Time { return now })

	alice, bob := uuid.New(), uuid.New()
	rl.Limit(okHandler()).ServeHTTP(httptest.NewRecorder(), withUser(httptest.NewRequest(http.MethodGet, "/", nil), alice))
	rl.Limit(okHandler()).ServeHTTP(httptest.NewRecorder(), withUser(httptest.NewRequest(http.MethodGet, "/", nil), bob))
	now = now.Add(time.Minute)
	rl.Limit(okHandler()).ServeHTTP(httptest.NewRecorder(), withUser(httptest.NewRequest(http.MethodGet, "/", nil), alice))

	require.Len(t, mc.keys, 3)
	assert.True(t, strings.Contains(mc.keys[0], alice.String()))
	assert.True(t, strings.Contains(mc.keys[1], bob.String()))
	assert.NotEqual(t, mc.keys[0], mc.keys[2])
}

func TestRateLimit_FailsOpenOnCacheError(t *testing.T) {
	mc := &mockCache{err: errors.New("redis down")}
	rl := mw.NewRateLimit(mc, 1)

	req := withUser(httptest.NewRequest(http.MethodGet, "/test", nil), uuid.New())
	w := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_NoUser_PassThrough(t *testing.T) {
	mc := &mockCache{}
	rl := mw.NewRateLimit(mc, 60)

	w := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mc.keys)
}

// ========================================
// Request ID / Headers
// ========================================

func TestRequestID_Generated(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mw.GetRequestID(r.Context())
	})

	w := httptest.NewRecorder()
	mw.RequestID(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	id, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "client-supplied")

	w := httptest.NewRecorder()
	mw.RequestID(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, "client-supplied", w.Header().Get("X-Request-ID"))
}

func TestSecureHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	mw.SecureHeaders(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

// ========================================
// Recovery Middleware Tests
// ========================================

func TestRecovery_CatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("something went wrong")
	})

	w := httptest.NewRecorder()
	mw.Recovery(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestRecovery_NoPanic(t *testing.T) {
	w := httptest.NewRecorder()
	mw.Recovery(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Logging Middleware Tests
// ========================================

func TestLogger_SetsStatus(t *testing.T) {
	teapot := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	mw.Logger(teapot).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
