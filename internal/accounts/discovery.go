package accounts

import (
	"context"
	"log"

	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultProbeConcurrency = 4

// AccountLinker persists user to account links.
type AccountLinker interface {
	Associate(ctx context.Context, userID, customerID string) error
}

// Discoverer enumerates the accounts a credential can reach: every directly
// accessible account plus the direct children of those that are managers.
type Discoverer struct {
	client      ads.Client
	links       AccountLinker
	metrics     *metrics.Metrics
	concurrency int
}

func NewDiscoverer(client ads.Client, links AccountLinker, m *metrics.Metrics) *Discoverer {
	return &Discoverer{client: client, links: links, metrics: m, concurrency: defaultProbeConcurrency}
}

// Discover returns the reachable accounts as sorted, de-duplicated
// "customers/{id}" names. With a userID every account found is linked to that
// user as a side effect. A failing manager probe or child listing only drops
// that account's children; listing the top-level accounts or persisting a
// link are the only failures returned.
func (d *Discoverer) Discover(ctx context.Context, refreshToken, userID string) ([]string, error) {
	names, err := d.client.ListAccessibleCustomers(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	var topLevel []string
	for _, name := range names {
		id := customerid.Normalize(name)
		if id == "" {
			continue
		}
		if _, dup := found[id]; dup {
			continue
		}
		found[id] = struct{}{}
		topLevel = append(topLevel, id)
		if err := d.link(ctx, userID, id); err != nil {
			return nil, err
		}
	}

	children := d.expandManagers(ctx, refreshToken, userID, topLevel)
	for _, id := range children {
		if _, dup := found[id]; dup {
			continue
		}
		found[id] = struct{}{}
		if err := d.link(ctx, userID, id); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	result := customerid.ResourceNames(ids)
	log.Printf("%s🔍 Discovered %d account(s) (%d top-level)", logging.Prefix(ctx), len(result), len(topLevel))
	return result, nil
}

// expandManagers probes every top-level account in parallel and returns the
// children of the managers, in top-level order.
func (d *Discoverer) expandManagers(ctx context.Context, refreshToken, userID string, topLevel []string) []string {
	perAccount := make([][]string, len(topLevel))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, id := range topLevel {
		g.Go(func() error {
			kids, err := d.children(ctx, refreshToken, id)
			if err != nil {
				d.metrics.RecordProbeFailure()
				log.Printf("%s⚠️ Skipping child-account discovery for %s (user=%q): %v",
					logging.Prefix(ctx), id, userID, err)
				return nil
			}
			perAccount[i] = kids
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, kids := range perAccount {
		out = append(out, kids...)
	}
	return out
}

// children returns the direct children of id, or nil when id is not a manager.
func (d *Discoverer) children(ctx context.Context, refreshToken, id string) ([]string, error) {
	scope := ads.SelfScope(id, refreshToken)
	manager, err := IsManager(ctx, d.client, scope)
	if err != nil || !manager {
		return nil, err
	}

	rows, err := d.client.Search(ctx, scope, ads.ChildAccountsQuery)
	if err != nil {
		return nil, err
	}
	var kids []string
	for _, row := range rows {
		if kid := customerid.Normalize(row.String("customer_client", "id")); kid != "" {
			kids = append(kids, kid)
		}
	}
	return kids, nil
}

func (d *Discoverer) link(ctx context.Context, userID, customerID string) error {
	if userID == "" || d.links == nil {
		return nil
	}
	return d.links.Associate(ctx, userID, customerID)
}

// IsManager runs the single-row manager probe in scope.
func IsManager(ctx context.Context, client ads.Client, scope ads.Scope) (bool, error) {
	rows, err := client.Search(ctx, scope, ads.ManagerProbeQuery)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0].Bool("customer", "manager"), nil
}
