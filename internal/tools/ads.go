package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/policy"
	"github.com/pysugar/ads-account-gateway/internal/util"
)

// CustomerResolver builds the account context for a call.
// *accounts.Service satisfies it.
type CustomerResolver interface {
	Customer(ctx context.Context, customerID, userID string) (ads.Scope, error)
}

// Searcher runs read queries. ads.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, scope ads.Scope, query string) ([]ads.Row, error)
}

// MutationExecutor dispatches raw mutation batches. *ads.Executor satisfies it.
type MutationExecutor interface {
	Execute(ctx context.Context, scope ads.Scope, raw []map[string]any, opts ads.ExecuteOptions) (*ads.MutateResult, error)
}

type QueryArgs struct {
	CustomerArgs
	Query string `json:"query"`
}

type ListCampaignsArgs struct {
	CustomerArgs
	Limit  int    `json:"limit,omitempty"`
	Status string `json:"status,omitempty"`
}

type CampaignArgs struct {
	CustomerArgs
	CampaignID string `json:"campaignId"`
}

type MutateArgs struct {
	CustomerArgs
	Operations     []map[string]any `json:"operations"`
	DryRun         bool             `json:"dryRun,omitempty"`
	PartialFailure bool             `json:"partialFailure,omitempty"`
}

const defaultCampaignLimit = 100

var campaignStatuses = map[string]bool{"ENABLED": true, "PAUSED": true, "REMOVED": true}

// RegisterAdsTools adds the query and mutation tools.
func RegisterAdsTools(r *Registry, customers CustomerResolver, searcher Searcher, executor MutationExecutor) {
	query := func(ctx context.Context, args CustomerArgs, q string) ([]ads.Row, error) {
		scope, err := customers.Customer(ctx, args.CustomerID, args.UserID)
		if err != nil {
			return nil, err
		}
		log.Printf("%s🔎 Running query for customer %s: %s", logging.Prefix(ctx), scope.CustomerID, util.TruncateLog(q, util.DefaultLogMaxLen))
		rows, err := searcher.Search(ctx, scope, q)
		if err != nil {
			log.Printf("%s❌ Query failed: %v", logging.Prefix(ctx), err)
			return nil, err
		}
		return nonNilRows(rows), nil
	}

	// run_ is a write verb, so the query tool keeps the class its name implies.
	Register(r, "run_gaql_query",
		"Run a Google Ads Query Language (GAQL) query against a specific customer ID.",
		policy.AccessUnset,
		func(ctx context.Context, args QueryArgs) (any, error) {
			if strings.TrimSpace(args.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			return query(ctx, args.CustomerArgs, args.Query)
		})

	Register(r, "list_campaigns",
		"List campaigns with optional status filter.",
		policy.AccessRead,
		func(ctx context.Context, args ListCampaignsArgs) (any, error) {
			q, err := campaignQuery(args.Status, args.Limit)
			if err != nil {
				return nil, err
			}
			return query(ctx, args.CustomerArgs, q)
		})

	setStatus := func(status string) func(context.Context, CampaignArgs) (any, error) {
		return func(ctx context.Context, args CampaignArgs) (any, error) {
			scope, name, err := campaignTarget(ctx, customers, args)
			if err != nil {
				return nil, err
			}
			op := map[string]any{
				"campaign_operation": map[string]any{
					"update":      map[string]any{"resource_name": name, "status": status},
					"update_mask": map[string]any{"paths": []any{"status"}},
				},
			}
			return executor.Execute(ctx, scope, []map[string]any{op}, ads.ExecuteOptions{})
		}
	}

	Register(r, "pause_campaign", "Pause a campaign by ID.", policy.AccessWrite, setStatus("PAUSED"))
	Register(r, "enable_campaign", "Enable a campaign by ID.", policy.AccessWrite, setStatus("ENABLED"))

	Register(r, "remove_campaign", "Remove (delete) a campaign by ID.", policy.AccessWrite,
		func(ctx context.Context, args CampaignArgs) (any, error) {
			scope, name, err := campaignTarget(ctx, customers, args)
			if err != nil {
				return nil, err
			}
			op := map[string]any{"campaign_operation": map[string]any{"remove": name}}
			return executor.Execute(ctx, scope, []map[string]any{op}, ads.ExecuteOptions{})
		})

	Register(r, "mutate_resources",
		"Apply a batch of raw mutate operations, e.g. {\"campaign_operation\": {\"update\": {...}}}.",
		policy.AccessWrite,
		func(ctx context.Context, args MutateArgs) (any, error) {
			if len(args.Operations) == 0 {
				return nil, fmt.Errorf("operations must not be empty")
			}
			scope, err := customers.Customer(ctx, args.CustomerID, args.UserID)
			if err != nil {
				return nil, err
			}
			return executor.Execute(ctx, scope, args.Operations, ads.ExecuteOptions{
				DryRun:         args.DryRun,
				PartialFailure: args.PartialFailure,
			})
		})
}

func campaignQuery(status string, limit int) (string, error) {
	if limit == 0 {
		limit = defaultCampaignLimit
	}
	if limit < 0 {
		return "", fmt.Errorf("limit must be positive")
	}
	where := ""
	if status != "" {
		status = strings.ToUpper(status)
		if !campaignStatuses[status] {
			return "", fmt.Errorf("status must be one of ENABLED, PAUSED, REMOVED")
		}
		where = "WHERE campaign.status = " + status + " "
	}
	return "SELECT campaign.id, campaign.name, campaign.status, campaign.advertising_channel_type, " +
		"campaign.bidding_strategy_type, campaign.campaign_budget, campaign.start_date, campaign.end_date " +
		"FROM campaign " + where + fmt.Sprintf("ORDER BY campaign.id DESC LIMIT %d", limit), nil
}

func campaignTarget(ctx context.Context, customers CustomerResolver, args CampaignArgs) (ads.Scope, string, error) {
	id := customerid.Normalize(args.CampaignID)
	if id == "" {
		return ads.Scope{}, "", fmt.Errorf("campaignId is required")
	}
	scope, err := customers.Customer(ctx, args.CustomerID, args.UserID)
	if err != nil {
		return ads.Scope{}, "", err
	}
	return scope, fmt.Sprintf("customers/%s/campaigns/%s", scope.CustomerID, id), nil
}

func nonNilRows(rows []ads.Row) []ads.Row {
	if rows == nil {
		return []ads.Row{}
	}
	return rows
}
