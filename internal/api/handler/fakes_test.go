package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/prospector/internal/api/middleware"
	"github.com/kiranshivaraju/prospector/pkg/models"
	"github.com/stretchr/testify/require"
)

// --- fake vault ---

type fakeVault struct {
	key      string
	found    bool
	getErr   error
	saveErr  error
	status   *models.Credential
	statusFn func() (*models.Credential, error)
	saved    []string
	gets     int
	savedID  uuid.UUID
}

func (v *fakeVault) Get(_ context.Context, _ uuid.UUID) (string, bool, error) {
	v.gets++
	return v.key, v.found, v.getErr
}

func (v *fakeVault) Save(_ context.Context, _ uuid.UUID, plaintext string) (uuid.UUID, error) {
	if v.saveErr != nil {
		return uuid.Nil, v.saveErr
	}
	v.saved = append(v.saved, plaintext)
	return v.savedID, nil
}

func (v *fakeVault) Status(_ context.Context, _ uuid.UUID) (*models.Credential, error) {
	if v.statusFn != nil {
		return v.statusFn()
	}
	return v.status, nil
}

// --- fake apollo client ---

type apolloCall struct {
	op     string
	apiKey string
	params string
	orgID  string
}

type fakeClient struct {
	body  json.RawMessage
	err   error
	calls []apolloCall
}

func (c *fakeClient) do(op, apiKey string, params json.RawMessage, orgID string) (json.RawMessage, error) {
	c.calls = append(c.calls, apolloCall{op: op, apiKey: apiKey, params: string(params), orgID: orgID})
	if c.err != nil {
		return nil, c.err
	}
	return c.body, nil
}

func (c *fakeClient) SearchPeople(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("SearchPeople", k, p, "")
}
func (c *fakeClient) SearchCompanies(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("SearchCompanies", k, p, "")
}
func (c *fakeClient) MatchPerson(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("MatchPerson", k, p, "")
}
func (c *fakeClient) MatchCompany(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("MatchCompany", k, p, "")
}
func (c *fakeClient) BulkMatchPeople(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("BulkMatchPeople", k, p, "")
}
func (c *fakeClient) BulkEnrichOrganizations(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("BulkEnrichOrganizations", k, p, "")
}
func (c *fakeClient) OrganizationInfo(_ context.Context, k, id string) (json.RawMessage, error) {
	return c.do("OrganizationInfo", k, nil, id)
}
func (c *fakeClient) OrganizationJobPostings(_ context.Context, k, id string) (json.RawMessage, error) {
	return c.do("OrganizationJobPostings", k, nil, id)
}
func (c *fakeClient) SearchNews(_ context.Context, k string, p json.RawMessage) (json.RawMessage, error) {
	return c.do("SearchNews", k, p, "")
}

// --- fake usage recorder ---

type recorded struct {
	owner  uuid.UUID
	tool   string
	params string
	count  int
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *fakeRecorder) Record(owner uuid.UUID, tool string, params json.RawMessage, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{owner: owner, tool: tool, params: string(params), count: count})
}

// --- fake cache ---

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}
func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}
func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}
func (c *fakeCache) Ping(_ context.Context) error { return nil }
func (c *fakeCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- helpers ---

var testUser = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

// authedReq builds a request as Authenticate would hand it on.
func authedReq(method, target, body string, params map[string]string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	ctx := mw.SetUserID(r.Context(), testUser)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
