// Package policy decides which tools a caller may invoke and against which
// customer accounts.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"gopkg.in/yaml.v3"
)

// Access is the class a tool is registered under.
type Access int

const (
	AccessUnset Access = iota
	AccessRead
	AccessWrite
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessAdmin:
		return "admin"
	}
	return "unset"
}

var writeVerbs = regexp.MustCompile(`^(create|update|remove|add|pause|enable|upload|link|unlink|run|apply|dismiss|insert|delete)`)

// ClassifyName derives the access class from a tool's leading verb. It is
// only consulted when a tool is registered without an explicit class.
func ClassifyName(tool string) Access {
	if writeVerbs.MatchString(tool) {
		return AccessWrite
	}
	return AccessRead
}

// Role is the privilege level granted by a policy.
type Role string

const (
	RoleRead  Role = "read"
	RoleWrite Role = "write"
	RoleAdmin Role = "admin"
)

// Policy is the active access policy. Empty allowlists allow everything.
type Policy struct {
	Role             Role     `yaml:"role"`
	AllowedCustomers []string `yaml:"allowedCustomers"`
	AllowedTools     []string `yaml:"allowedTools"`
}

// Default grants write access to every tool and customer.
func Default() *Policy {
	return &Policy{Role: RoleWrite}
}

// Parse decodes a YAML policy. A missing role defaults to write; customer ids
// are normalized to digits.
func Parse(data []byte) (*Policy, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if p.Role == "" {
		p.Role = RoleWrite
	}
	if err := p.normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) normalize() error {
	switch p.Role {
	case RoleRead, RoleWrite, RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q: must be read, write or admin", p.Role)
	}

	customers := make([]string, 0, len(p.AllowedCustomers))
	for _, raw := range p.AllowedCustomers {
		id := customerid.Normalize(raw)
		if id == "" {
			return fmt.Errorf("invalid customer id %q in allowedCustomers", raw)
		}
		customers = append(customers, id)
	}
	p.AllowedCustomers = customers

	tools := make([]string, 0, len(p.AllowedTools))
	for _, name := range p.AllowedTools {
		if name = strings.TrimSpace(name); name != "" {
			tools = append(tools, name)
		}
	}
	p.AllowedTools = tools
	return nil
}

func (p *Policy) allowsCustomer(id string) bool {
	if len(p.AllowedCustomers) == 0 {
		return true
	}
	for _, c := range p.AllowedCustomers {
		if c == id {
			return true
		}
	}
	return false
}

func (p *Policy) allowsTool(tool string) bool {
	if len(p.AllowedTools) == 0 {
		return true
	}
	for _, t := range p.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}
