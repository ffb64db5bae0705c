package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/prospector/internal/api/middleware"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/apollo"
)

// CredentialSource hands out the caller's decrypted Apollo key.
type CredentialSource interface {
	Get(ctx context.Context, ownerID uuid.UUID) (string, bool, error)
}

// UsageRecorder appends a history row for a successful call. It must not block.
type UsageRecorder interface {
	Record(ownerID uuid.UUID, toolName string, params json.RawMessage, resultCount int)
}

// ApolloHandler proxies the Apollo operations on behalf of the caller.
type ApolloHandler struct {
	keys   CredentialSource
	client apollo.Client
	usage  UsageRecorder
}

func NewApolloHandler(keys CredentialSource, client apollo.Client, usage UsageRecorder) *ApolloHandler {
	return &ApolloHandler{keys: keys, client: client, usage: usage}
}

type bodyCall func(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)

type orgCall func(ctx context.Context, apiKey, orgID string) (json.RawMessage, error)

// SearchPeople handles POST /api/v1/apollo/search-people.
func (h *ApolloHandler) SearchPeople() http.HandlerFunc {
	return h.proxyBody("search_people", h.client.SearchPeople, apollo.CountPaginationTotal)
}

// SearchCompanies handles POST /api/v1/apollo/search-companies.
func (h *ApolloHandler) SearchCompanies() http.HandlerFunc {
	return h.proxyBody("search_companies", h.client.SearchCompanies, apollo.CountPaginationTotal)
}

// EnrichPerson handles POST /api/v1/apollo/enrich-person.
func (h *ApolloHandler) EnrichPerson() http.HandlerFunc {
	return h.proxyBody("enrich_person", h.client.MatchPerson, apollo.CountOne)
}

// EnrichCompany handles POST /api/v1/apollo/enrich-company.
func (h *ApolloHandler) EnrichCompany() http.HandlerFunc {
	return h.proxyBody("enrich_company", h.client.MatchCompany, apollo.CountOne)
}

// BulkEnrichPeople handles POST /api/v1/apollo/bulk-enrich-people.
func (h *ApolloHandler) BulkEnrichPeople() http.HandlerFunc {
	return h.proxyBody("bulk_enrich_people", h.client.BulkMatchPeople, apollo.CountMatches)
}

// BulkEnrichOrganizations handles POST /api/v1/apollo/bulk-enrich-organizations.
func (h *ApolloHandler) BulkEnrichOrganizations() http.HandlerFunc {
	return h.proxyBody("bulk_enrich_organizations", h.client.BulkEnrichOrganizations, apollo.CountMatches)
}

// OrganizationInfo handles GET /api/v1/apollo/organization/{id}.
func (h *ApolloHandler) OrganizationInfo() http.HandlerFunc {
	return h.proxyOrg("organization_info", h.client.OrganizationInfo, apollo.CountOne)
}

// OrganizationJobs handles GET /api/v1/apollo/organization/{id}/jobs.
func (h *ApolloHandler) OrganizationJobs() http.HandlerFunc {
	return h.proxyOrg("organization_jobs", h.client.OrganizationJobPostings, apollo.CountJobPostings)
}

// SearchNews handles POST /api/v1/apollo/search-news.
func (h *ApolloHandler) SearchNews() http.HandlerFunc {
	return h.proxyBody("search_news", h.client.SearchNews, apollo.CountPaginationTotal)
}

func (h *ApolloHandler) proxyBody(tool string, call bodyCall, count func(json.RawMessage) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		params, err := readObject(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be a JSON object")
			return
		}

		apiKey, ok := h.apiKey(w, r, userID)
		if !ok {
			return
		}

		result, err := call(r.Context(), apiKey, params)
		if err != nil {
			writeProviderError(w, r, tool, err)
			return
		}

		h.usage.Record(userID, tool, params, count(result))
		response.Raw(w, http.StatusOK, result)
	}
}

func (h *ApolloHandler) proxyOrg(tool string, call orgCall, count func(json.RawMessage) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		orgID := strings.TrimSpace(chi.URLParam(r, "id"))
		if orgID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Organization id is required")
			return
		}

		apiKey, ok := h.apiKey(w, r, userID)
		if !ok {
			return
		}

		result, err := call(r.Context(), apiKey, orgID)
		if err != nil {
			writeProviderError(w, r, tool, err)
			return
		}

		params, _ := json.Marshal(map[string]string{"organization_id": orgID})
		h.usage.Record(userID, tool, params, count(result))
		response.Raw(w, http.StatusOK, result)
	}
}

// apiKey loads the caller's credential, writing the error response itself
// when there is none or it cannot be decrypted.
func (h *ApolloHandler) apiKey(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (string, bool) {
	key, found, err := h.keys.Get(r.Context(), userID)
	if err != nil {
		internalError(w, r, "failed to load apollo credential", err)
		return "", false
	}
	if !found {
		response.Error(w, http.StatusBadRequest, "API_KEY_NOT_CONFIGURED", "Apollo API key not configured")
		return "", false
	}
	return key, true
}

// writeProviderError maps apollo client errors onto responses the caller
// can act on.
func writeProviderError(w http.ResponseWriter, r *http.Request, tool string, err error) {
	var rl *apollo.RateLimitError
	var se *apollo.StatusError

	switch {
	case errors.Is(err, apollo.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "PROVIDER_UNAUTHORIZED", err.Error())
	case errors.As(err, &rl):
		if rl.RetryAfter != "" {
			w.Header().Set("Retry-After", rl.RetryAfter)
		}
		response.Error(w, http.StatusTooManyRequests, "PROVIDER_RATE_LIMITED", rl.Error())
	case errors.As(err, &se):
		slog.Warn("apollo returned an error",
			"tool", tool,
			"status", se.StatusCode,
			"request_id", mw.GetRequestID(r.Context()),
		)
		response.Error(w, http.StatusBadGateway, "PROVIDER_ERROR", se.Error())
	case errors.Is(err, apollo.ErrTransport):
		slog.Error("apollo unreachable", "tool", tool, "error", err, "request_id", mw.GetRequestID(r.Context()))
		response.Error(w, http.StatusBadGateway, "PROVIDER_UNREACHABLE", "Apollo is unreachable")
	case errors.Is(err, apollo.ErrInvalidResponse):
		response.Error(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
	default:
		internalError(w, r, "apollo call failed", err)
	}
}
