// Package tools exposes gateway operations as named tools. Every call passes
// through the registry, which authorizes it and turns failures into results.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"github.com/pysugar/ads-account-gateway/internal/policy"
)

// Content is one block of tool output.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is what every tool call returns, successful or not.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

func textResult(text string, isError bool) Result {
	return Result{Content: []Content{{Type: "text", Text: text}}, IsError: isError}
}

func errorResult(msg string) Result {
	return textResult("Error: "+msg, true)
}

// Args is implemented by every tool argument type. CustomerRef names the
// account the call acts on, or "" when it acts on none.
type Args interface {
	CustomerRef() string
}

// CustomerArgs is embedded by tools that act on one customer account.
type CustomerArgs struct {
	CustomerID string `json:"customerId"`
	UserID     string `json:"userId,omitempty"`
}

func (a CustomerArgs) CustomerRef() string { return a.CustomerID }
func (a CustomerArgs) UserRef() string     { return a.UserID }

// UserArgs is embedded by tools scoped to a user but no account.
type UserArgs struct {
	UserID string `json:"userId"`
}

func (UserArgs) CustomerRef() string { return "" }
func (a UserArgs) UserRef() string   { return a.UserID }

// userScoped is implemented by arguments that name a user.
type userScoped interface {
	UserRef() string
}

// CallRecorder receives one audit entry per finished call.
// *monitor.CallMonitor satisfies it.
type CallRecorder interface {
	Record(entry models.ToolCallLog)
}

// Tool is a registered tool.
type Tool struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Access      policy.Access `json:"-"`

	decode func(raw json.RawMessage) (Args, error)
	run    func(ctx context.Context, args Args) (any, error)
}

// Info describes a tool for listings.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Access      string `json:"access"`
}

// Registry holds the tool set and the gate every call passes through.
type Registry struct {
	gate     *policy.Gate
	metrics  *metrics.Metrics
	recorder CallRecorder
	tools    map[string]*Tool
}

func NewRegistry(gate *policy.Gate, m *metrics.Metrics) *Registry {
	return &Registry{gate: gate, metrics: m, tools: make(map[string]*Tool)}
}

// SetRecorder installs the audit recorder. Call it before serving.
func (r *Registry) SetRecorder(rec CallRecorder) {
	r.recorder = rec
}

// Register adds a tool with typed arguments. An unset access class is
// derived from the name once, here. Registering a name twice panics.
func Register[A Args](r *Registry, name, description string, access policy.Access, handler func(context.Context, A) (any, error)) {
	if _, dup := r.tools[name]; dup {
		panic(fmt.Sprintf("tools: %s registered twice", name))
	}
	if access == policy.AccessUnset {
		access = policy.ClassifyName(name)
	}

	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Access:      access,
		decode: func(raw json.RawMessage) (Args, error) {
			var args A
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
				return args, nil
			}
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
			return args, nil
		},
		run: func(ctx context.Context, args Args) (any, error) {
			return handler(ctx, args.(A))
		},
	}
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Info{Name: t.Name, Description: t.Description, Access: t.Access.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs a tool. It never returns a Go error: denials, bad arguments,
// handler errors and panics all come back as a Result with IsError set.
func (r *Registry) Call(ctx context.Context, name string, raw json.RawMessage) (result Result) {
	if logging.GetRequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, logging.GenerateRequestID())
	}
	start := time.Now()
	outcome := metrics.OutcomeOK
	var args Args
	defer func() {
		if p := recover(); p != nil {
			log.Printf("%s💥 Tool %s panicked: %v", logging.Prefix(ctx), name, p)
			result = errorResult(fmt.Sprintf("internal error in %s", name))
			outcome = metrics.OutcomeError
		}
		elapsed := time.Since(start)
		r.metrics.RecordToolCall(name, outcome, elapsed.Seconds())
		r.record(ctx, name, args, outcome, elapsed, result)
	}()

	tool, ok := r.tools[name]
	if !ok {
		outcome = metrics.OutcomeError
		return errorResult(fmt.Sprintf("Unknown tool %s.", name))
	}

	args, err := tool.decode(raw)
	if err != nil {
		outcome = metrics.OutcomeError
		return errorResult(err.Error())
	}

	decision := r.gate.Authorize(name, tool.Access, args.CustomerRef())
	if !decision.Allowed {
		outcome = metrics.OutcomeDenied
		return errorResult(decision.Err().Error())
	}

	logging.Debugf("%s🔧 Calling tool %s", logging.Prefix(ctx), name)
	value, err := tool.run(ctx, args)
	if err != nil {
		outcome = metrics.OutcomeError
		log.Printf("%s❌ Tool %s failed: %v", logging.Prefix(ctx), name, err)
		return errorResult(apperrors.Message(err))
	}

	text, err := renderJSON(value)
	if err != nil {
		outcome = metrics.OutcomeError
		return errorResult(err.Error())
	}
	return textResult(text, false)
}

func (r *Registry) record(ctx context.Context, name string, args Args, outcome string, elapsed time.Duration, result Result) {
	if r.recorder == nil {
		return
	}
	entry := models.ToolCallLog{
		RequestID: logging.GetRequestID(ctx),
		Tool:      name,
		Outcome:   outcome,
		Duration:  elapsed.Milliseconds(),
	}
	if args != nil {
		entry.CustomerID = customerid.Normalize(args.CustomerRef())
		if u, ok := args.(userScoped); ok {
			entry.UserID = u.UserRef()
		}
	}
	if result.IsError && len(result.Content) > 0 {
		entry.Error = result.Content[0].Text
	}
	r.recorder.Record(entry)
}

// renderJSON pretty-prints v with two-space indentation.
func renderJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
