package accounts

import (
	"context"
	"log"

	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
)

// AccountLister reads a user's links in customer ID order.
type AccountLister interface {
	List(ctx context.Context, userID string) ([]models.AccountAssociation, error)
}

// Resolver picks the login customer ("acting as" manager) to present with a
// vendor call.
type Resolver struct {
	client   ads.Client
	accounts AccountLister
	cache    LoginCustomerCache
	override string
	metrics  *metrics.Metrics
}

// NewResolver builds a resolver. A non-empty override short-circuits every
// resolution.
func NewResolver(client ads.Client, accounts AccountLister, cache LoginCustomerCache, override string, m *metrics.Metrics) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{
		client:   client,
		accounts: accounts,
		cache:    cache,
		override: customerid.Normalize(override),
		metrics:  m,
	}
}

// Resolve returns the login customer for a call on targetCustomerID, or ""
// when none applies. Order: static override, no user, cached value, then the
// first candidate whose self-scoped probe reports a manager, else the first
// candidate unverified. Candidates are the user's selection, the target, then
// every linked account.
func (r *Resolver) Resolve(ctx context.Context, refreshToken, targetCustomerID, userID string) (string, error) {
	if r.override != "" {
		r.metrics.RecordLoginCustomer(metrics.CacheOverride)
		return r.override, nil
	}
	if userID == "" {
		return "", nil
	}

	cached, ok, err := r.cache.Get(ctx, userID)
	if err != nil {
		log.Printf("%s⚠️ Login-customer cache read failed for user %s: %v", logging.Prefix(ctx), userID, err)
	} else if ok && cached != "" {
		r.metrics.RecordLoginCustomer(metrics.CacheHit)
		return cached, nil
	}
	r.metrics.RecordLoginCustomer(metrics.CacheMiss)

	linked, err := r.accounts.List(ctx, userID)
	if err != nil {
		return "", err
	}
	candidates := customerid.Unique(append(append(db.SelectedIDs(linked), targetCustomerID), db.CustomerIDs(linked)...)...)
	if len(candidates) == 0 {
		return "", nil
	}

	for _, candidate := range candidates {
		manager, err := IsManager(ctx, r.client, ads.SelfScope(candidate, refreshToken))
		if err != nil {
			logging.Debugf("%sManager probe failed for candidate %s: %v", logging.Prefix(ctx), candidate, err)
			continue
		}
		if manager {
			r.remember(ctx, userID, candidate)
			return candidate, nil
		}
	}

	fallback := candidates[0]
	log.Printf("%s⚠️ No manager among %d candidate(s) for user %s, using %s unverified",
		logging.Prefix(ctx), len(candidates), userID, fallback)
	r.remember(ctx, userID, fallback)
	return fallback, nil
}

// Forget drops the cached login customer for userID so the next call
// re-resolves against current links.
func (r *Resolver) Forget(ctx context.Context, userID string) {
	if err := r.cache.Delete(ctx, userID); err != nil {
		log.Printf("%s⚠️ Login-customer cache delete failed for user %s: %v", logging.Prefix(ctx), userID, err)
	}
}

func (r *Resolver) remember(ctx context.Context, userID, customerID string) {
	if err := r.cache.Set(ctx, userID, customerID); err != nil {
		log.Printf("%s⚠️ Login-customer cache write failed for user %s: %v", logging.Prefix(ctx), userID, err)
	}
}
