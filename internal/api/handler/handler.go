// Package handler implements the HTTP handlers behind the /api/v1 routes.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/prospector/internal/api/middleware"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/cache"
)

// maxBodyBytes caps inbound JSON bodies.
const maxBodyBytes = 1 << 20

var (
	errNotObject    = errors.New("body must be a JSON object")
	errTrailingData = errors.New("unexpected data after JSON value")
)

// currentUser returns the authenticated user, writing a 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid authentication token")
	}
	return userID, ok
}

// pathID parses the {id} URL parameter, writing a 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// readObject reads the request body and checks that it is a single JSON
// object. An empty body reads as {}. The bytes are returned untouched.
func readObject(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, errors.New("body too large")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("{}"), nil
	}
	if body[0] != '{' || !json.Valid(body) {
		return nil, errNotObject
	}
	return body, nil
}

// decodeJSON decodes exactly one JSON value from the body into dst. Trailing
// content after the value is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", mw.GetRequestID(r.Context()),
	)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// Read-through helpers over the Redis cache. A nil cache disables caching;
// cache failures are logged and treated as misses.

func cacheGet(ctx context.Context, c cache.Cache, key string, dst any) bool {
	if c == nil {
		return false
	}
	raw, found, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func cacheSet(ctx context.Context, c cache.Cache, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

func cacheDelete(ctx context.Context, c cache.Cache, key string) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, key); err != nil {
		slog.Warn("cache delete failed", "key", key, "error", err)
	}
}
