package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pysugar/ads-account-gateway/internal/accounts"
	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"github.com/pysugar/ads-account-gateway/internal/monitor"
	"github.com/pysugar/ads-account-gateway/internal/policy"
	"github.com/pysugar/ads-account-gateway/internal/testutil/dbtest"
	"github.com/pysugar/ads-account-gateway/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noAds is an advertising client with no reachable accounts.
type noAds struct{}

func (noAds) ListAccessibleCustomers(context.Context, string) ([]string, error) { return nil, nil }

func (noAds) Search(context.Context, ads.Scope, string) ([]ads.Row, error) { return nil, nil }

func (noAds) Mutate(context.Context, ads.Scope, []ads.Mutation, ads.MutateOptions) (*ads.MutateResult, error) {
	return &ads.MutateResult{}, nil
}

type fixture struct {
	router http.Handler
	userID string
	calls  *monitor.CallMonitor
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	database := dbtest.New(t)
	users := db.NewUserStore(database)
	creds := db.NewCredentialStore(database)
	links := db.NewAccountStore(database)

	client := noAds{}
	svc := accounts.NewService(users, creds, links, client,
		accounts.NewDiscoverer(client, links, nil),
		accounts.NewResolver(client, links, accounts.NewMemoryCache(), "", nil),
		accounts.Options{})

	ctx := context.Background()
	user, err := users.UpsertByEmail(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)
	require.NoError(t, links.Associate(ctx, user.ID, "200"))
	require.NoError(t, links.Associate(ctx, user.ID, "100"))

	registry := tools.NewRegistry(policy.NewGate(nil), nil)
	tools.RegisterAccountTools(registry, svc)
	calls := monitor.NewCallMonitor(database)
	registry.SetRecorder(calls)

	return &fixture{
		router: NewRouter(Options{
			APIKey:   apiKey,
			Metrics:  metrics.NewMetrics("test"),
			Accounts: svc,
			Registry: registry,
			Calls:    calls,
			Health: map[string]HealthCheck{
				"database": func(ctx context.Context) error { return nil },
			},
		}),
		userID: user.ID,
		calls:  calls,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListUserAccounts(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/users/"+f.userID+"/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"user": {"id": "`+f.userID+`", "email": "ada@example.com", "name": "Ada"},
		"linkedAccounts": [{"customerId": "100", "selected": false}, {"customerId": "200", "selected": false}]
	}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/users/ghost/accounts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "User ghost not found."}`, rec.Body.String())
}

func TestSelectUserAccounts(t *testing.T) {
	f := newFixture(t, "")
	path := "/users/" + f.userID + "/accounts/select"

	rec := f.do(t, http.MethodPost, path, `{"customerIds": ["200", "999"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"userId": "`+f.userID+`", "selectedCustomerIds": ["200"], "linkedCustomerIds": ["100", "200"]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, path, `{"customerIds": []}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId": "`+f.userID+`", "selectedCustomerIds": [], "linkedCustomerIds": ["100", "200"]}`, rec.Body.String())

	for _, bad := range []string{``, `{}`, `{"customerIds": null}`, `{"customerIds": "100"}`, `{"customerIds": [100]}`, `not json`} {
		rec = f.do(t, http.MethodPost, path, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.JSONEq(t, `{"error": "Body must be JSON: { \"customerIds\": [\"1234567890\", \"...\"] }"}`, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/users/ghost/accounts/select", `{"customerIds": []}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingAccounts struct{ UserAccounts }

func (failingAccounts) User(context.Context, string) (*models.User, error) {
	return nil, errors.New("db down")
}

func TestUserRoutes_InternalErrors(t *testing.T) {
	router := NewRouter(Options{Accounts: failingAccounts{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1/accounts", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to list linked accounts."}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/u1/accounts/select", strings.NewReader(`{"customerIds":[]}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to update selected accounts."}`, rec.Body.String())
}

func TestToolRoutes(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Tools []tools.Info `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.NotEmpty(t, listing.Tools)

	rec = f.do(t, http.MethodPost, "/tools/list_user_linked_accounts", `{"userId": "`+f.userID+`"}`, "X-Request-ID", "req-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	var result tools.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, `"customerId": "100"`)

	rec = f.do(t, http.MethodPost, "/tools/get_user_status", `{"userId": "ghost"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: User ghost not found.", result.Content[0].Text)

	rec = f.do(t, http.MethodPost, "/tools/nope", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/tools/get_user_status", `{"userId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolCallsRoute(t *testing.T) {
	f := newFixture(t, "")

	f.do(t, http.MethodPost, "/tools/get_user_status", `{"userId": "`+f.userID+`"}`, "X-Request-ID", "req-ok")
	f.do(t, http.MethodPost, "/tools/get_user_status", `{"userId": "ghost"}`, "X-Request-ID", "req-bad")
	f.calls.Flush()

	rec := f.do(t, http.MethodGet, "/tools/calls?user=ghost", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Stats models.ToolCallStats `json:"stats"`
		Calls []models.ToolCallLog `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ToolCallStats{Total: 2, OK: 1, Errors: 1}, body.Stats)
	require.Len(t, body.Calls, 1)
	assert.Equal(t, "req-bad", body.Calls[0].RequestID)
	assert.Equal(t, "get_user_status", body.Calls[0].Tool)
	assert.Equal(t, metrics.OutcomeError, body.Calls[0].Outcome)
	assert.Equal(t, "Error: User ghost not found.", body.Calls[0].Error)

	rec = f.do(t, http.MethodGet, "/tools/calls?limit=1&outcome=ok", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Calls, 1)
	assert.Equal(t, "req-ok", body.Calls[0].RequestID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/tools/calls?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/tools/calls?since=soon", "").Code)
}

func TestAPIKeyProtectsUserAndToolRoutes(t *testing.T) {
	f := newFixture(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/tools", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/users/"+f.userID+"/accounts", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/tools/calls", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tools", "", "Authorization", "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics", "").Code)
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := HealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": "ok", "redis": "connection refused"}, body["checks"])
}
