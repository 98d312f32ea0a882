package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"github.com/pysugar/ads-account-gateway/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

func resultText(t *testing.T, r Result) string {
	t.Helper()
	require.Len(t, r.Content, 1)
	assert.Equal(t, "text", r.Content[0].Type)
	return r.Content[0].Text
}

type echoArgs struct {
	CustomerArgs
	Value string `json:"value"`
}

func newEchoRegistry(p *policy.Policy, m *metrics.Metrics, calls *int) *Registry {
	r := NewRegistry(policy.NewGate(p), m)
	Register(r, "pause_campaign", "", policy.AccessUnset, func(ctx context.Context, a echoArgs) (any, error) {
		*calls++
		return map[string]string{"value": a.Value, "requestId": logging.GetRequestID(ctx)}, nil
	})
	Register(r, "list_campaigns", "", policy.AccessUnset, func(ctx context.Context, a echoArgs) (any, error) {
		*calls++
		return []string{"<" + a.Value + ">"}, nil
	})
	Register(r, "get_failure", "", policy.AccessUnset, func(ctx context.Context, a echoArgs) (any, error) {
		*calls++
		return nil, errors.New("boom")
	})
	Register(r, "get_panic", "", policy.AccessUnset, func(ctx context.Context, a echoArgs) (any, error) {
		*calls++
		panic("unexpected")
	})
	return r
}

func TestCall_ReadRoleDeniesWriteToolBeforeHandler(t *testing.T) {
	m := metrics.NewMetrics("test")
	calls := 0
	r := newEchoRegistry(&policy.Policy{Role: policy.RoleRead}, m, &calls)

	res := r.Call(context.Background(), "pause_campaign", json.RawMessage(`{"customerId":"123-4"}`))

	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Access denied for tool pause_campaign (customer 1234).", resultText(t, res))
	assert.Zero(t, calls)
	assert.Equal(t, 1.0, counterValue(t, m.ToolCalls.WithLabelValues("pause_campaign", metrics.OutcomeDenied)))

	res = r.Call(context.Background(), "list_campaigns", json.RawMessage(`{"customerId":"1234","value":"a&b"}`))
	assert.False(t, res.IsError)
	assert.Equal(t, "[\n  \"<a&b>\"\n]", resultText(t, res))
	assert.Equal(t, 1, calls)
}

func TestCall_DenialWithoutCustomerOmitsIt(t *testing.T) {
	calls := 0
	r := newEchoRegistry(&policy.Policy{Role: policy.RoleWrite, AllowedTools: []string{"list_campaigns"}}, nil, &calls)

	res := r.Call(context.Background(), "pause_campaign", nil)
	assert.Equal(t, "Error: Access denied for tool pause_campaign.", resultText(t, res))
}

func TestCall_ErrorBoundary(t *testing.T) {
	m := metrics.NewMetrics("test")
	calls := 0
	r := newEchoRegistry(nil, m, &calls)

	res := r.Call(context.Background(), "get_failure", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: boom", resultText(t, res))

	res = r.Call(context.Background(), "get_panic", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: internal error in get_panic", resultText(t, res))

	res = r.Call(context.Background(), "nope", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Unknown tool nope.", resultText(t, res))

	res = r.Call(context.Background(), "list_campaigns", json.RawMessage(`{"customerId": 12}`))
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "invalid arguments for list_campaigns")

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1.0, counterValue(t, m.ToolCalls.WithLabelValues("get_panic", metrics.OutcomeError)))
}

func TestCall_AssignsRequestID(t *testing.T) {
	calls := 0
	r := newEchoRegistry(nil, nil, &calls)

	res := r.Call(context.Background(), "pause_campaign", json.RawMessage(`{"customerId":"1","value":"v"}`))
	require.False(t, res.IsError)
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Len(t, out["requestId"], 8)

	ctx := logging.WithRequestID(context.Background(), "fixed-id")
	res = r.Call(ctx, "pause_campaign", json.RawMessage(`{"customerId":"1"}`))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "fixed-id", out["requestId"])
}

func TestRegister_ClassifiesAndListsTools(t *testing.T) {
	calls := 0
	r := newEchoRegistry(nil, nil, &calls)

	list := r.List()
	require.Len(t, list, 4)
	assert.Equal(t, "get_failure", list[0].Name)
	assert.Equal(t, "read", list[0].Access)

	tool, ok := r.Lookup("pause_campaign")
	require.True(t, ok)
	assert.Equal(t, policy.AccessWrite, tool.Access)

	assert.Panics(t, func() {
		Register(r, "pause_campaign", "", policy.AccessWrite, func(context.Context, echoArgs) (any, error) { return nil, nil })
	})
}

type captureRecorder struct {
	entries []models.ToolCallLog
}

func (c *captureRecorder) Record(entry models.ToolCallLog) {
	c.entries = append(c.entries, entry)
}

func TestCall_RecordsAuditEntries(t *testing.T) {
	calls := 0
	r := newEchoRegistry(&policy.Policy{Role: policy.RoleRead}, nil, &calls)
	rec := &captureRecorder{}
	r.SetRecorder(rec)

	ctx := logging.WithRequestID(context.Background(), "req-1")
	r.Call(ctx, "list_campaigns", json.RawMessage(`{"customerId":"123-456","userId":"u1","value":"x"}`))
	r.Call(ctx, "pause_campaign", json.RawMessage(`{"customerId":"99"}`))
	r.Call(ctx, "get_failure", json.RawMessage(`{"customerId":"7"}`))
	r.Call(ctx, "list_campaigns", json.RawMessage(`{"customerId":`))

	require.Len(t, rec.entries, 4)

	ok := rec.entries[0]
	assert.Equal(t, "req-1", ok.RequestID)
	assert.Equal(t, "list_campaigns", ok.Tool)
	assert.Equal(t, "123456", ok.CustomerID)
	assert.Equal(t, "u1", ok.UserID)
	assert.Equal(t, metrics.OutcomeOK, ok.Outcome)
	assert.Empty(t, ok.Error)

	denied := rec.entries[1]
	assert.Equal(t, metrics.OutcomeDenied, denied.Outcome)
	assert.Equal(t, "99", denied.CustomerID)
	assert.Contains(t, denied.Error, "Access denied")

	assert.Equal(t, metrics.OutcomeError, rec.entries[2].Outcome)
	assert.Equal(t, "Error: boom", rec.entries[2].Error)

	malformed := rec.entries[3]
	assert.Equal(t, metrics.OutcomeError, malformed.Outcome)
	assert.Empty(t, malformed.CustomerID)
}
