package tools

import (
	"context"
	"sync"

	"github.com/pysugar/ads-account-gateway/internal/accounts"
	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
)

type fakeAccounts struct {
	accessible []string
	links      []models.AccountAssociation
	users      []models.User
	status     *accounts.UserStatus
	err        error

	calls []string
}

func (f *fakeAccounts) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeAccounts) ListAccessible(_ context.Context, userID string) ([]string, error) {
	f.record("ListAccessible:" + userID)
	return f.accessible, f.err
}

func (f *fakeAccounts) LinkedAccounts(_ context.Context, userID string) ([]models.AccountAssociation, error) {
	f.record("LinkedAccounts:" + userID)
	return f.links, f.err
}

func (f *fakeAccounts) SelectAccounts(_ context.Context, userID string, ids []string) ([]models.AccountAssociation, error) {
	f.record("SelectAccounts:" + userID)
	return f.links, f.err
}

func (f *fakeAccounts) SetDefaultAccount(_ context.Context, userID, customerID string) ([]models.AccountAssociation, error) {
	f.record("SetDefaultAccount:" + userID + ":" + customerID)
	return f.links, f.err
}

func (f *fakeAccounts) Disconnect(_ context.Context, userID, customerID string) ([]models.AccountAssociation, error) {
	f.record("Disconnect:" + userID + ":" + customerID)
	return f.links, f.err
}

func (f *fakeAccounts) Status(_ context.Context, userID string) (*accounts.UserStatus, error) {
	f.record("Status:" + userID)
	return f.status, f.err
}

func (f *fakeAccounts) Users(context.Context) ([]models.User, error) {
	f.record("Users")
	return f.users, f.err
}

type fakeCustomers struct {
	err   error
	login string
}

func (f *fakeCustomers) Customer(_ context.Context, customerID, userID string) (ads.Scope, error) {
	if f.err != nil {
		return ads.Scope{}, f.err
	}
	return ads.Scope{CustomerID: customerid.Normalize(customerID), LoginCustomerID: f.login, RefreshToken: "rt-" + userID}, nil
}

// fakeAds implements ads.Client for the search and mutate paths.
type fakeAds struct {
	mu        sync.Mutex
	rows      []ads.Row
	searchErr error
	mutateErr error

	queries   []string
	mutations [][]ads.Mutation
	options   []ads.MutateOptions
	scopes    []ads.Scope
}

func (f *fakeAds) ListAccessibleCustomers(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeAds) Search(_ context.Context, scope ads.Scope, query string) ([]ads.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.scopes = append(f.scopes, scope)
	return f.rows, f.searchErr
}

func (f *fakeAds) Mutate(_ context.Context, scope ads.Scope, mutations []ads.Mutation, opts ads.MutateOptions) (*ads.MutateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, mutations)
	f.options = append(f.options, opts)
	f.scopes = append(f.scopes, scope)
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	return &ads.MutateResult{ValidateOnly: opts.ValidateOnly}, nil
}
