package ads

import (
	"testing"

	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UpdateFoldsMaskIntoResource(t *testing.T) {
	mask := map[string]any{"paths": []any{"status"}}
	m, err := Normalize(map[string]any{
		"campaign_operation": map[string]any{
			"update":      map[string]any{"resource_name": "x"},
			"update_mask": mask,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "campaign", m.Entity)
	assert.Equal(t, OpUpdate, m.Operation)
	assert.Equal(t, map[string]any{"resource_name": "x", "update_mask": mask}, m.Resource)
}

func TestNormalize_CanonicalPassesThrough(t *testing.T) {
	resource := map[string]any{}
	m, err := Normalize(map[string]any{"entity": "campaign", "operation": "update", "resource": resource})
	require.NoError(t, err)
	assert.Equal(t, Mutation{Entity: "campaign", Operation: OpUpdate, Resource: resource}, m)

	again, err := Normalize(map[string]any{"entity": m.Entity, "operation": m.Operation.String(), "resource": m.Resource})
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestNormalize_CreateCarriesExemptions(t *testing.T) {
	keys := []any{map[string]any{"policy_name": "x"}}
	m, err := Normalize(map[string]any{
		"ad_group_ad_operation": map[string]any{
			"create":                       map[string]any{"status": "PAUSED"},
			"exempt_policy_violation_keys": keys,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ad_group_ad", m.Entity)
	assert.Equal(t, OpCreate, m.Operation)
	assert.Equal(t, keys, m.ExemptPolicyViolationKeys)
}

func TestNormalize_Remove(t *testing.T) {
	m, err := Normalize(map[string]any{
		"campaign_operation": map[string]any{"remove": "customers/1/campaigns/2"},
	})
	require.NoError(t, err)
	assert.Equal(t, OpRemove, m.Operation)
	assert.Equal(t, "customers/1/campaigns/2", m.Resource)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantMsg string
	}{
		{
			name:    "empty object",
			raw:     map[string]any{},
			wantMsg: "Invalid mutation payload: no '*_operation' key found. Keys: ",
		},
		{
			name:    "no operation key",
			raw:     map[string]any{"foo": 1, "bar": 2},
			wantMsg: "Invalid mutation payload: no '*_operation' key found. Keys: bar, foo",
		},
		{
			name:    "missing create/update/remove",
			raw:     map[string]any{"foo_operation": map[string]any{}},
			wantMsg: "Invalid mutation payload at 'foo_operation': expected one of create/update/remove keys.",
		},
		{
			name:    "operation is not an object",
			raw:     map[string]any{"foo_operation": "nope"},
			wantMsg: "Invalid mutation payload at 'foo_operation': expected object.",
		},
		{
			name: "mutually exclusive",
			raw: map[string]any{"foo_operation": map[string]any{
				"create": map[string]any{}, "remove": "customers/1/foos/2",
			}},
			wantMsg: "Invalid mutation payload at 'foo_operation': create/update/remove are mutually exclusive.",
		},
		{
			name:    "unknown canonical operation",
			raw:     map[string]any{"entity": "campaign", "operation": "upsert", "resource": map[string]any{}},
			wantMsg: `Invalid mutation payload at 'operation': unknown operation "upsert", expected create/update/remove.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			var normErr *apperrors.NormalizationError
			require.ErrorAs(t, err, &normErr)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestNormalize_MultipleOperationKeys(t *testing.T) {
	_, err := Normalize(map[string]any{
		"campaign_operation": map[string]any{"remove": "a"},
		"ad_group_operation": map[string]any{"remove": "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ad_group_operation, campaign_operation")
}

func TestNormalizeAll_StopsAtFirstBadEntry(t *testing.T) {
	_, err := NormalizeAll([]map[string]any{
		{"campaign_operation": map[string]any{"remove": "a"}},
		{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutation 1")
}

func TestOperationKindString(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "OperationKind(9)", OperationKind(9).String())
	k, ok := ParseOperationKind("remove")
	assert.True(t, ok)
	assert.Equal(t, OpRemove, k)
}
