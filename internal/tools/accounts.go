package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/pysugar/ads-account-gateway/internal/accounts"
	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"github.com/pysugar/ads-account-gateway/internal/policy"
)

// AccountService is the account management surface the tools need.
// *accounts.Service satisfies it.
type AccountService interface {
	ListAccessible(ctx context.Context, userID string) ([]string, error)
	LinkedAccounts(ctx context.Context, userID string) ([]models.AccountAssociation, error)
	SelectAccounts(ctx context.Context, userID string, customerIDs []string) ([]models.AccountAssociation, error)
	SetDefaultAccount(ctx context.Context, userID, customerID string) ([]models.AccountAssociation, error)
	Disconnect(ctx context.Context, userID, customerID string) ([]models.AccountAssociation, error)
	Status(ctx context.Context, userID string) (*accounts.UserStatus, error)
	Users(ctx context.Context) ([]models.User, error)
}

type ListAccessibleArgs struct {
	UserID string `json:"userId,omitempty"`
}

func (ListAccessibleArgs) CustomerRef() string { return "" }
func (a ListAccessibleArgs) UserRef() string   { return a.UserID }

type SelectAccountsArgs struct {
	UserArgs
	CustomerIDs []string `json:"customerIds"`
}

// UserAccountArgs names one linked account of a user. The account id is
// checked against the customer allowlist like any other.
type UserAccountArgs struct {
	UserID     string `json:"userId"`
	CustomerID string `json:"customerId"`
}

func (a UserAccountArgs) CustomerRef() string { return a.CustomerID }
func (a UserAccountArgs) UserRef() string     { return a.UserID }

type NoArgs struct{}

func (NoArgs) CustomerRef() string { return "" }

type linkedAccount struct {
	CustomerID string    `json:"customerId"`
	Selected   bool      `json:"selected"`
	CreatedAt  time.Time `json:"createdAt"`
}

type linkedAccountsResult struct {
	UserID   string          `json:"userId"`
	Accounts []linkedAccount `json:"accounts"`
}

type selectionResult struct {
	UserID              string   `json:"userId"`
	SelectedCustomerIDs []string `json:"selectedCustomerIds"`
	LinkedCustomerIDs   []string `json:"linkedCustomerIds"`
}

type disconnectResult struct {
	UserID                     string   `json:"userId"`
	RemovedCustomerID          string   `json:"removedCustomerId"`
	RemainingLinkedCustomerIDs []string `json:"remainingLinkedCustomerIds"`
	SelectedCustomerIDs        []string `json:"selectedCustomerIds"`
}

type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewSelectionResult renders a user's links after a selection change.
func NewSelectionResult(userID string, links []models.AccountAssociation) any {
	return selectionResult{
		UserID:              userID,
		SelectedCustomerIDs: nonNil(db.SelectedIDs(links)),
		LinkedCustomerIDs:   nonNil(db.CustomerIDs(links)),
	}
}

// RegisterAccountTools adds the account discovery and management tools.
func RegisterAccountTools(r *Registry, svc AccountService) {
	Register(r, "list_accessible_accounts",
		"List all Google Ads accounts accessible with the current credentials.",
		policy.AccessRead,
		func(ctx context.Context, args ListAccessibleArgs) (any, error) {
			return svc.ListAccessible(ctx, args.UserID)
		})

	Register(r, "list_user_linked_accounts",
		"List linked Google Ads accounts for a user.",
		policy.AccessRead,
		func(ctx context.Context, args UserArgs) (any, error) {
			if err := requireUser(args.UserID); err != nil {
				return nil, err
			}
			links, err := svc.LinkedAccounts(ctx, args.UserID)
			if err != nil {
				return nil, err
			}
			out := linkedAccountsResult{UserID: args.UserID, Accounts: make([]linkedAccount, 0, len(links))}
			for _, l := range links {
				out.Accounts = append(out.Accounts, linkedAccount{CustomerID: l.CustomerID, Selected: l.IsDefault, CreatedAt: l.CreatedAt})
			}
			return out, nil
		})

	Register(r, "select_user_accounts",
		"Select which linked accounts are included in tool calls. An empty list clears the selection.",
		policy.AccessWrite,
		func(ctx context.Context, args SelectAccountsArgs) (any, error) {
			if err := requireUser(args.UserID); err != nil {
				return nil, err
			}
			links, err := svc.SelectAccounts(ctx, args.UserID, args.CustomerIDs)
			if err != nil {
				return nil, err
			}
			return NewSelectionResult(args.UserID, links), nil
		})

	Register(r, "set_default_user_account",
		"Set a single default account for tool calls.",
		policy.AccessWrite,
		func(ctx context.Context, args UserAccountArgs) (any, error) {
			if err := requireUserAccount(args); err != nil {
				return nil, err
			}
			links, err := svc.SetDefaultAccount(ctx, args.UserID, args.CustomerID)
			if err != nil {
				return nil, err
			}
			return NewSelectionResult(args.UserID, links), nil
		})

	Register(r, "disconnect_user_account",
		"Unlink one Google Ads customer from a user.",
		policy.AccessWrite,
		func(ctx context.Context, args UserAccountArgs) (any, error) {
			if err := requireUserAccount(args); err != nil {
				return nil, err
			}
			links, err := svc.Disconnect(ctx, args.UserID, args.CustomerID)
			if err != nil {
				return nil, err
			}
			return disconnectResult{
				UserID:                     args.UserID,
				RemovedCustomerID:          customerid.Normalize(args.CustomerID),
				RemainingLinkedCustomerIDs: nonNil(db.CustomerIDs(links)),
				SelectedCustomerIDs:        nonNil(db.SelectedIDs(links)),
			}, nil
		})

	Register(r, "get_user_status",
		"Get the status of a user (linked accounts, connection status).",
		policy.AccessRead,
		func(ctx context.Context, args UserArgs) (any, error) {
			if err := requireUser(args.UserID); err != nil {
				return nil, err
			}
			return svc.Status(ctx, args.UserID)
		})

	Register(r, "list_users",
		"List every connected user.",
		policy.AccessAdmin,
		func(ctx context.Context, _ NoArgs) (any, error) {
			users, err := svc.Users(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]userSummary, 0, len(users))
			for _, u := range users {
				out = append(out, userSummary{ID: u.ID, Email: u.Email, Name: u.Name})
			}
			return out, nil
		})
}

func requireUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("userId is required")
	}
	return nil
}

func requireUserAccount(args UserAccountArgs) error {
	if err := requireUser(args.UserID); err != nil {
		return err
	}
	if customerid.Normalize(args.CustomerID) == "" {
		return fmt.Errorf("customerId is required")
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
