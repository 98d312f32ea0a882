package ads

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
)

// OperationKind is the closed set of mutate operation shapes.
type OperationKind int

const (
	OpCreate OperationKind = iota + 1
	OpUpdate
	OpRemove
)

const operationSuffix = "_operation"

var operationNames = map[OperationKind]string{
	OpCreate: "create",
	OpUpdate: "update",
	OpRemove: "remove",
}

func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OperationKind(%d)", int(k))
}

// ParseOperationKind maps "create", "update" or "remove" to its kind.
func ParseOperationKind(s string) (OperationKind, bool) {
	for k, name := range operationNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Mutation is one canonical mutate operation.
type Mutation struct {
	Entity    string
	Operation OperationKind
	// Resource is the payload: an object for create/update, a resource name
	// for remove.
	Resource                  any
	ExemptPolicyViolationKeys any
}

// Normalize converts a raw mutation into canonical form. Input that already
// carries "entity" and "resource" is taken as canonical; otherwise the single
// "<entity>_operation" key and its create/update/remove payload are unpacked.
// An operation-level update_mask is folded into the update resource.
func Normalize(raw map[string]any) (Mutation, error) {
	if raw == nil {
		return Mutation{}, &apperrors.NormalizationError{Reason: "expected object"}
	}

	if entity, ok := raw["entity"].(string); ok && entity != "" {
		if resource, ok := raw["resource"]; ok {
			return canonical(entity, raw, resource)
		}
	}

	keys := sortedKeys(raw)
	var opKeys []string
	for _, k := range keys {
		if strings.HasSuffix(k, operationSuffix) {
			opKeys = append(opKeys, k)
		}
	}
	switch len(opKeys) {
	case 0:
		return Mutation{}, &apperrors.NormalizationError{
			Keys:   keys,
			Reason: "no '*" + operationSuffix + "' key found",
		}
	case 1:
	default:
		return Mutation{}, &apperrors.NormalizationError{
			Keys:   opKeys,
			Reason: "expected exactly one '*" + operationSuffix + "' key",
		}
	}

	key := opKeys[0]
	payload, ok := raw[key].(map[string]any)
	if !ok {
		return Mutation{}, &apperrors.NormalizationError{Key: key, Reason: "expected object."}
	}

	var found []OperationKind
	for _, k := range []OperationKind{OpCreate, OpUpdate, OpRemove} {
		if v, ok := payload[k.String()]; ok && v != nil {
			found = append(found, k)
		}
	}
	if len(found) != 1 {
		reason := "expected one of create/update/remove keys."
		if len(found) > 1 {
			reason = "create/update/remove are mutually exclusive."
		}
		return Mutation{}, &apperrors.NormalizationError{Key: key, Reason: reason}
	}

	m := Mutation{
		Entity:    strings.TrimSuffix(key, operationSuffix),
		Operation: found[0],
		Resource:  payload[found[0].String()],
	}
	switch m.Operation {
	case OpCreate:
		m.ExemptPolicyViolationKeys = payload["exempt_policy_violation_keys"]
	case OpUpdate:
		if mask, ok := payload["update_mask"]; ok {
			if res, ok := m.Resource.(map[string]any); ok {
				merged := make(map[string]any, len(res)+1)
				for k, v := range res {
					merged[k] = v
				}
				merged["update_mask"] = mask
				m.Resource = merged
			}
		}
	}
	return m, nil
}

// NormalizeAll normalizes a batch, failing on the first bad entry.
func NormalizeAll(raw []map[string]any) ([]Mutation, error) {
	out := make([]Mutation, 0, len(raw))
	for i, r := range raw {
		m, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func canonical(entity string, raw map[string]any, resource any) (Mutation, error) {
	op, _ := raw["operation"].(string)
	kind, ok := ParseOperationKind(op)
	if !ok {
		return Mutation{}, &apperrors.NormalizationError{
			Key:    "operation",
			Reason: fmt.Sprintf("unknown operation %q, expected create/update/remove.", op),
		}
	}
	m := Mutation{Entity: entity, Operation: kind, Resource: resource}
	if keys, ok := raw["exempt_policy_violation_keys"]; ok {
		m.ExemptPolicyViolationKeys = keys
	}
	return m, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
