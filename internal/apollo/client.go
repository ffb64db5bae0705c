// Package apollo is a thin client for the Apollo.io people and company data
// API. Each call is a single round trip authenticated with the caller's key;
// nothing is retried or cached.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.apollo.io/api/v1"

	// maxErrorBody bounds how much of an error response is kept for diagnostics.
	maxErrorBody = 64 << 10
)

// Client is the interface for calling Apollo. apiKey is the caller's
// decrypted credential and is never retained past the call.
type Client interface {
	SearchPeople(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
	SearchCompanies(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
	MatchPerson(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
	MatchCompany(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
	BulkMatchPeople(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
	BulkEnrichOrganizations(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
	OrganizationInfo(ctx context.Context, apiKey, orgID string) (json.RawMessage, error)
	OrganizationJobPostings(ctx context.Context, apiKey, orgID string) (json.RawMessage, error)
	SearchNews(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error)
}

// HTTPClient implements Client using Apollo's REST API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new Apollo HTTP client. A zero timeout leaves
// requests bounded only by the caller's context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SearchPeople(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/mixed_people/search", params)
}

func (c *HTTPClient) SearchCompanies(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/mixed_companies/search", params)
}

// MatchPerson never asks Apollo to reveal personal emails or phone numbers;
// those reveals spend extra credits.
func (c *HTTPClient) MatchPerson(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	q := url.Values{
		"reveal_personal_emails": {"false"},
		"reveal_phone_number":    {"false"},
	}
	return c.post(ctx, apiKey, "/people/match?"+q.Encode(), params)
}

func (c *HTTPClient) MatchCompany(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/organizations/enrich", params)
}

func (c *HTTPClient) BulkMatchPeople(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/people/bulk_match", params)
}

func (c *HTTPClient) BulkEnrichOrganizations(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/organizations/bulk_enrich", params)
}

func (c *HTTPClient) OrganizationInfo(ctx context.Context, apiKey, orgID string) (json.RawMessage, error) {
	return c.get(ctx, apiKey, "/organizations/"+url.PathEscape(orgID))
}

func (c *HTTPClient) OrganizationJobPostings(ctx context.Context, apiKey, orgID string) (json.RawMessage, error) {
	return c.get(ctx, apiKey, "/organizations/"+url.PathEscape(orgID)+"/job_postings")
}

func (c *HTTPClient) SearchNews(ctx context.Context, apiKey string, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/news_articles/search", params)
}

func (c *HTTPClient) post(ctx context.Context, apiKey, path string, params json.RawMessage) (json.RawMessage, error) {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(params))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return c.do(req, apiKey)
}

func (c *HTTPClient) get(ctx context.Context, apiKey, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return c.do(req, apiKey)
}

func (c *HTTPClient) do(req *http.Request, apiKey string) (json.RawMessage, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}
	return body, nil
}

// classifyStatus maps non-success responses to the client's error kinds.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: strings.TrimSpace(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 400:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(text)}
	}
	return nil
}

// classifyError maps transport-level errors to ErrTransport, keeping the
// timeout distinction in the message.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out: %v", ErrTransport, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timed out: %v", ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
