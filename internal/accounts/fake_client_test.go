package accounts

import (
	"context"
	"errors"
	"sync"

	"github.com/pysugar/ads-account-gateway/internal/ads"
)

// fakeClient is an ads.Client over a static account graph.
type fakeClient struct {
	mu sync.Mutex

	accessible []string
	listErr    error

	managers  map[string]bool
	probeErr  map[string]error
	children  map[string][]string
	childErr  map[string]error
	fallback  map[string][]string
	searchErr error

	probes     map[string]int
	loginSeen  map[string]string
	listTokens []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		managers:  map[string]bool{},
		probeErr:  map[string]error{},
		children:  map[string][]string{},
		childErr:  map[string]error{},
		fallback:  map[string][]string{},
		probes:    map[string]int{},
		loginSeen: map[string]string{},
	}
}

func (f *fakeClient) ListAccessibleCustomers(_ context.Context, refreshToken string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listTokens = append(f.listTokens, refreshToken)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.accessible, nil
}

func (f *fakeClient) Search(_ context.Context, scope ads.Scope, query string) ([]ads.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginSeen[scope.CustomerID] = scope.LoginCustomerID

	switch query {
	case ads.ManagerProbeQuery:
		f.probes[scope.CustomerID]++
		if err := f.probeErr[scope.CustomerID]; err != nil {
			return nil, err
		}
		return []ads.Row{{"customer": map[string]any{"manager": f.managers[scope.CustomerID]}}}, nil
	case ads.ChildAccountsQuery:
		if err := f.childErr[scope.CustomerID]; err != nil {
			return nil, err
		}
		return idRows(f.children[scope.CustomerID]), nil
	case ads.ChildAccountsUpToLevelOneQuery:
		if f.searchErr != nil {
			return nil, f.searchErr
		}
		return idRows(f.fallback[scope.CustomerID]), nil
	}
	return nil, errors.New("unexpected query: " + query)
}

func (f *fakeClient) Mutate(context.Context, ads.Scope, []ads.Mutation, ads.MutateOptions) (*ads.MutateResult, error) {
	return &ads.MutateResult{}, nil
}

func (f *fakeClient) probeCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes[id]
}

func (f *fakeClient) totalProbes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.probes {
		n += c
	}
	return n
}

func idRows(ids []string) []ads.Row {
	rows := make([]ads.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, ads.Row{"customerClient": map[string]any{"id": id}})
	}
	return rows
}
