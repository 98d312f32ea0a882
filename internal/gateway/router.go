// Package gateway serves the gateway's HTTP surface: the OAuth connect flow,
// per-user account selection and tool invocation.
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/ads-account-gateway/internal/auth/google"
	"github.com/pysugar/ads-account-gateway/internal/gateway/middleware"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"github.com/pysugar/ads-account-gateway/internal/tools"
)

// Options wires the router's dependencies. OAuth and Connector may be nil,
// in which case the consent routes are not mounted.
type Options struct {
	APIKey    string
	Metrics   *metrics.Metrics
	OAuth     *google.App
	Connector google.Connector
	Accounts  UserAccounts
	Registry  *tools.Registry
	Calls     CallLog
	Health    map[string]HealthCheck
}

// NewRouter assembles the routes. /healthz, /metrics and the consent flow
// are public; user and tool routes require the API key when one is set.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware(opts.Metrics))

	r.Get("/healthz", HealthHandler(opts.Health))
	r.Handle("/metrics", opts.Metrics.Handler())

	if opts.OAuth != nil && opts.Connector != nil {
		r.Get("/login", google.HandleLogin(opts.OAuth))
		r.Get(google.CallbackPath, google.HandleCallback(opts.OAuth, opts.Connector))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(opts.APIKey))

		if opts.Accounts != nil {
			r.Get("/users/{userID}/accounts", ListUserAccountsHandler(opts.Accounts))
			r.Post("/users/{userID}/accounts/select", SelectUserAccountsHandler(opts.Accounts))
		}

		if opts.Registry != nil {
			r.Get("/tools", ListToolsHandler(opts.Registry))
			if opts.Calls != nil {
				r.Get("/tools/calls", ToolCallsHandler(opts.Calls))
			}
			r.Post("/tools/{name}", CallToolHandler(opts.Registry))
		}
	})

	return r
}
