package ads

import (
	"context"
	"log"

	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/util"
)

// ExecuteOptions are the caller's mutation preferences.
type ExecuteOptions struct {
	DryRun         bool
	PartialFailure bool
}

// MutationRecorder observes dispatched batches. *metrics.Metrics satisfies it.
type MutationRecorder interface {
	RecordMutation(validateOnly bool)
}

// Executor normalizes and dispatches mutate batches. When forceValidateOnly
// is set, no batch it sends can commit.
type Executor struct {
	client            Client
	forceValidateOnly bool
	recorder          MutationRecorder
}

func NewExecutor(client Client, forceValidateOnly bool, recorder MutationRecorder) *Executor {
	return &Executor{client: client, forceValidateOnly: forceValidateOnly, recorder: recorder}
}

// ForceValidateOnly reports whether the process-wide override is on.
func (e *Executor) ForceValidateOnly() bool {
	return e.forceValidateOnly
}

// Execute normalizes every entry of raw before dispatching anything, then
// sends the batch. Vendor failures are logged and returned unchanged.
func (e *Executor) Execute(ctx context.Context, scope Scope, raw []map[string]any, opts ExecuteOptions) (*MutateResult, error) {
	validateOnly := opts.DryRun || e.forceValidateOnly
	log.Printf("%s✏️ Running mutation: customer=%s ops=%d dryRun=%v partialFailure=%v validateOnly=%v forceValidateOnly=%v",
		logging.Prefix(ctx), scope.CustomerID, len(raw), opts.DryRun, opts.PartialFailure, validateOnly, e.forceValidateOnly)

	mutations, err := NormalizeAll(raw)
	if err != nil {
		log.Printf("%s❌ Mutation rejected: %v", logging.Prefix(ctx), err)
		return nil, err
	}
	logging.Debugf("%s✏️ Normalized mutations: %s", logging.Prefix(ctx), util.TruncateJSON(raw))

	result, err := e.client.Mutate(ctx, scope, mutations, MutateOptions{
		ValidateOnly:   validateOnly,
		PartialFailure: opts.PartialFailure,
	})
	if err != nil {
		log.Printf("%s❌ Mutation failed for customer %s: %v", logging.Prefix(ctx), scope.CustomerID, err)
		return nil, err
	}
	if e.recorder != nil {
		e.recorder.RecordMutation(validateOnly)
	}
	return result, nil
}
