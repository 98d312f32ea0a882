// Package ads talks to the advertising platform: account listing, scoped
// read queries and batch mutations, plus the mutation normalizer and the
// validate-only executor built on top of them.
package ads

import (
	"context"
	"strconv"
	"strings"
)

// Queries shared by discovery, the login-customer resolver and the listing
// fallback.
const (
	ManagerProbeQuery              = "SELECT customer.manager FROM customer LIMIT 1"
	ChildAccountsQuery             = "SELECT customer_client.id FROM customer_client WHERE customer_client.level = 1"
	ChildAccountsUpToLevelOneQuery = "SELECT customer_client.id, customer_client.descriptive_name, customer_client.manager FROM customer_client WHERE customer_client.level <= 1"
)

// Scope identifies who a vendor call runs as and which account it targets.
type Scope struct {
	CustomerID string
	// LoginCustomerID is the acting-as manager. Empty means none.
	LoginCustomerID string
	RefreshToken    string
}

// SelfScope returns a scope where customerID acts as its own login customer.
func SelfScope(customerID, refreshToken string) Scope {
	return Scope{CustomerID: customerID, LoginCustomerID: customerID, RefreshToken: refreshToken}
}

// Row is one result row of a read query, as decoded JSON.
type Row map[string]any

// Lookup walks path through nested objects. Each segment is tried as given
// and in lowerCamel form, so "customer_client" matches "customerClient".
func (r Row) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			v, ok = m[lowerCamel(seg)]
		}
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Bool reports the boolean at path, false when missing.
func (r Row) Bool(path ...string) bool {
	v, _ := r.Lookup(path...)
	b, _ := v.(bool)
	return b
}

// String returns the value at path rendered as a string. Numbers arrive as
// either JSON numbers or strings depending on field width.
func (r Row) String(path ...string) string {
	v, ok := r.Lookup(path...)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// MutateOptions are the flags sent with a mutate batch.
type MutateOptions struct {
	ValidateOnly   bool
	PartialFailure bool
}

// MutateResult is the vendor's answer to a mutate batch.
type MutateResult struct {
	Responses           []map[string]any `json:"mutateOperationResponses,omitempty"`
	PartialFailureError map[string]any   `json:"partialFailureError,omitempty"`
	ValidateOnly        bool             `json:"validateOnly"`
}

// Client is the slice of the advertising API the gateway depends on.
type Client interface {
	// ListAccessibleCustomers returns resource names ("customers/123") the
	// credential can reach directly.
	ListAccessibleCustomers(ctx context.Context, refreshToken string) ([]string, error)
	Search(ctx context.Context, scope Scope, query string) ([]Row, error)
	Mutate(ctx context.Context, scope Scope, mutations []Mutation, opts MutateOptions) (*MutateResult, error)
}

func lowerCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
