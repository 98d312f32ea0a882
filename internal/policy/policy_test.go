package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyName(t *testing.T) {
	tests := []struct {
		tool string
		want Access
	}{
		{"pause_campaign", AccessWrite},
		{"enable_campaign", AccessWrite},
		{"remove_campaign", AccessWrite},
		{"create_user_list", AccessWrite},
		{"link_merchant_center", AccessWrite},
		{"run_gaql_query", AccessWrite},
		{"list_campaigns", AccessRead},
		{"get_user_status", AccessRead},
		{"list_accessible_accounts", AccessRead},
		{"select_user_accounts", AccessRead},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyName(tt.tool))
		})
	}
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte("allowedCustomers: [\"123-456-7890\", customers/42]\nallowedTools: [list_campaigns, \" \"]\n"))
	require.NoError(t, err)
	assert.Equal(t, RoleWrite, p.Role)
	assert.Equal(t, []string{"1234567890", "42"}, p.AllowedCustomers)
	assert.Equal(t, []string{"list_campaigns"}, p.AllowedTools)

	_, err = Parse([]byte("role: superuser\n"))
	assert.ErrorContains(t, err, "invalid role")

	_, err = Parse([]byte("allowedCustomers: [abc]\n"))
	assert.ErrorContains(t, err, "invalid customer id")

	_, err = Parse([]byte("role: [\n"))
	assert.Error(t, err)
}

func TestGate_ReadRole(t *testing.T) {
	g := NewGate(&Policy{Role: RoleRead})

	assert.False(t, g.Authorize("pause_campaign", AccessUnset, "123").Allowed)
	assert.True(t, g.Authorize("list_campaigns", AccessUnset, "123").Allowed)
	assert.False(t, g.Authorize("mutate_resources", AccessWrite, "").Allowed,
		"explicit class overrides the name")
}

func TestGate_AdminTools(t *testing.T) {
	assert.False(t, NewGate(&Policy{Role: RoleWrite}).Authorize("list_users", AccessAdmin, "").Allowed)
	assert.True(t, NewGate(&Policy{Role: RoleAdmin}).Authorize("list_users", AccessAdmin, "").Allowed)
	assert.True(t, NewGate(&Policy{Role: RoleAdmin}).Authorize("pause_campaign", AccessWrite, "").Allowed)
}

func TestGate_FirstFailingCheckWins(t *testing.T) {
	g := NewGate(&Policy{Role: RoleRead, AllowedCustomers: []string{"111"}, AllowedTools: []string{"list_campaigns"}})

	d := g.Authorize("pause_campaign", AccessWrite, "222")
	assert.Equal(t, "write permission required", d.Reason)

	d = g.Authorize("get_campaign", AccessRead, "222")
	assert.Equal(t, "customer not in allowlist", d.Reason)

	d = g.Authorize("get_campaign", AccessRead, "111")
	assert.Equal(t, "tool not in allowlist", d.Reason)

	d = g.Authorize("list_campaigns", AccessRead, "111-")
	assert.True(t, d.Allowed)
	assert.Equal(t, "111", d.CustomerID)
}

func TestGate_CallsWithoutCustomerSkipTheCustomerCheck(t *testing.T) {
	g := NewGate(&Policy{Role: RoleWrite, AllowedCustomers: []string{"111"}})
	assert.True(t, g.Authorize("list_accessible_accounts", AccessRead, "").Allowed)
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := NewGate(&Policy{Role: RoleRead}).Authorize("pause_campaign", AccessUnset, "12-3").Err()
	var denied *apperrors.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "Access denied for tool pause_campaign (customer 123).", err.Error())
}

func TestNewGate_NilUsesDefault(t *testing.T) {
	g := NewGate(nil)
	assert.Equal(t, RoleWrite, g.Policy().Role)
	assert.True(t, g.Authorize("remove_campaign", AccessUnset, "1").Allowed)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestWatcher_ReloadsAndKeepsPreviousOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writeFile(t, path, "role: write\n")

	gate := NewGate(nil)
	w := NewWatcher(path, gate)
	reloads := make(chan error, 16)
	w.OnReload = func(_ *Policy, err error) { reloads <- err }
	require.NoError(t, w.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeFile(t, path, "role: read\n")
	require.Eventually(t, func() bool { return gate.Policy().Role == RoleRead }, 5*time.Second, 20*time.Millisecond)

	writeFile(t, path, "role: nobody\n")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-reloads:
			if err == nil {
				continue
			}
			assert.Equal(t, RoleRead, gate.Policy().Role)
			return
		case <-deadline:
			t.Fatal("invalid policy was never reported")
		}
	}
}

func TestWatcher_InitialLoadMustSucceed(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), NewGate(nil))
	assert.Error(t, w.Load())
}

func TestLoadFile_RejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writeFile(t, path, "\n  \n")
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "empty")
}
