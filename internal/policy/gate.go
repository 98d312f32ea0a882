package policy

import (
	"log"
	"sync/atomic"

	"github.com/pysugar/ads-account-gateway/internal/customerid"
	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed    bool
	Tool       string
	CustomerID string
	Reason     string
}

// Err returns the denial as an error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &apperrors.AccessDeniedError{Tool: d.Tool, CustomerID: d.CustomerID, Reason: d.Reason}
}

// Gate evaluates calls against the active policy. The policy can be swapped
// at any time without locking callers out.
type Gate struct {
	current atomic.Pointer[Policy]
}

// NewGate returns a gate enforcing p, or Default() when p is nil.
func NewGate(p *Policy) *Gate {
	g := &Gate{}
	g.SetPolicy(p)
	return g
}

func (g *Gate) Policy() *Policy {
	return g.current.Load()
}

func (g *Gate) SetPolicy(p *Policy) {
	if p == nil {
		p = Default()
	}
	g.current.Store(p)
}

// Authorize checks a call in order, and the first failing check wins:
// role against the tool's class, the customer allowlist, then the tool
// allowlist. customerRef may be empty when the call names no account.
func (g *Gate) Authorize(tool string, access Access, customerRef string) Decision {
	p := g.Policy()
	d := Decision{Tool: tool, CustomerID: customerid.Normalize(customerRef)}
	if access == AccessUnset {
		access = ClassifyName(tool)
	}

	switch {
	case access == AccessWrite && p.Role == RoleRead:
		d.Reason = "write permission required"
	case access == AccessAdmin && p.Role != RoleAdmin:
		d.Reason = "admin permission required"
	case d.CustomerID != "" && !p.allowsCustomer(d.CustomerID):
		d.Reason = "customer not in allowlist"
	case !p.allowsTool(tool):
		d.Reason = "tool not in allowlist"
	default:
		d.Allowed = true
		return d
	}

	log.Printf("🚫 Access denied for tool %s (customer %q): %s", tool, d.CustomerID, d.Reason)
	return d
}
