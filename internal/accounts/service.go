// Package accounts resolves which credential and account context a call runs
// under: account discovery, login-customer resolution and the per-user account
// management built on the stores.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
	"github.com/pysugar/ads-account-gateway/internal/logging"
)

// ErrNoRefreshToken means a consent produced no refresh token and none was
// stored earlier.
var ErrNoRefreshToken = errors.New("No refresh token received and no existing token found. " +
	"Revoke app access and try login again with prompt=consent.")

// Options carries the environment-level settings the service needs.
type Options struct {
	// RefreshToken backs calls made without a userID.
	RefreshToken string
	// FallbackCustomerID is the top-level account listed as a last resort.
	FallbackCustomerID string
}

// Service ties the stores, the discoverer and the resolver together.
type Service struct {
	users      *db.UserStore
	creds      *db.CredentialStore
	links      *db.AccountStore
	client     ads.Client
	discoverer *Discoverer
	resolver   *Resolver
	opts       Options
}

func NewService(users *db.UserStore, creds *db.CredentialStore, links *db.AccountStore,
	client ads.Client, discoverer *Discoverer, resolver *Resolver, opts Options) *Service {
	opts.FallbackCustomerID = customerid.Normalize(opts.FallbackCustomerID)
	return &Service{
		users:      users,
		creds:      creds,
		links:      links,
		client:     client,
		discoverer: discoverer,
		resolver:   resolver,
		opts:       opts,
	}
}

// RefreshToken returns the credential for userID, or the single-user token
// when userID is empty.
func (s *Service) RefreshToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		if s.opts.RefreshToken == "" {
			return "", &apperrors.NotConnectedError{}
		}
		return s.opts.RefreshToken, nil
	}
	cred, err := s.creds.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return "", &apperrors.NotConnectedError{UserID: userID}
	}
	if err != nil {
		return "", err
	}
	if cred.RefreshToken == "" {
		return "", &apperrors.NotConnectedError{UserID: userID}
	}
	return cred.RefreshToken, nil
}

// Customer builds the scope for a call on customerID. With a userID the
// account must be usable under the user's selection.
func (s *Service) Customer(ctx context.Context, customerID, userID string) (ads.Scope, error) {
	id := customerid.Normalize(customerID)
	if id == "" {
		return ads.Scope{}, fmt.Errorf("invalid customer id %q", customerID)
	}

	token, err := s.RefreshToken(ctx, userID)
	if err != nil {
		return ads.Scope{}, err
	}
	if userID != "" {
		usable, err := s.links.IsUsable(ctx, userID, id)
		if err != nil {
			return ads.Scope{}, err
		}
		if !usable {
			return ads.Scope{}, &apperrors.AccountNotUsableError{UserID: userID, CustomerID: id}
		}
		logging.Debugf("%sUsing database credentials for user %s", logging.Prefix(ctx), userID)
	} else {
		logging.Debugf("%sUsing default environment credentials", logging.Prefix(ctx))
	}

	login, err := s.resolver.Resolve(ctx, token, id, userID)
	if err != nil {
		return ads.Scope{}, err
	}
	return ads.Scope{CustomerID: id, LoginCustomerID: login, RefreshToken: token}, nil
}

// ListAccessible lists the accounts the caller can reach. Live discovery wins;
// if it fails the user's stored links are used, then the configured fallback
// account's children, and only then is the discovery error returned. An empty
// discovery also falls back to stored links.
func (s *Service) ListAccessible(ctx context.Context, userID string) ([]string, error) {
	token, err := s.RefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	var linked []models.AccountAssociation
	if userID != "" {
		if linked, err = s.links.List(ctx, userID); err != nil {
			return nil, err
		}
	}

	discovered, discErr := s.discoverer.Discover(ctx, token, userID)
	if discErr == nil {
		if len(discovered) > 0 {
			return discovered, nil
		}
		return customerid.ResourceNames(db.CustomerIDs(linked)), nil
	}

	log.Printf("%s⚠️ Live account discovery failed for user %q, falling back: %v", logging.Prefix(ctx), userID, discErr)
	if len(linked) > 0 {
		return customerid.ResourceNames(db.CustomerIDs(linked)), nil
	}
	if s.opts.FallbackCustomerID == "" {
		return nil, discErr
	}

	rows, err := s.client.Search(ctx, ads.SelfScope(s.opts.FallbackCustomerID, token), ads.ChildAccountsUpToLevelOneQuery)
	if err != nil {
		return nil, fmt.Errorf("%w (fallback listing of %s also failed: %v)", discErr, s.opts.FallbackCustomerID, err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.String("customer_client", "id"))
	}
	return customerid.ResourceNames(ids), nil
}

// ConnectResult summarizes an OAuth connection.
type ConnectResult struct {
	User       *models.User
	Discovered int
	// Warning is set when discovery failed; the connection itself succeeded.
	Warning string
}

// Connect records a completed consent: the user is upserted by email, the
// refresh token stored (an absent new token keeps the existing one), and the
// user's accounts discovered and linked.
func (s *Service) Connect(ctx context.Context, email, name, refreshToken string) (*ConnectResult, error) {
	user, err := s.users.UpsertByEmail(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	if refreshToken == "" {
		existing, err := s.creds.Get(ctx, user.ID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		if existing == nil || existing.RefreshToken == "" {
			return nil, ErrNoRefreshToken
		}
		refreshToken = existing.RefreshToken
	}
	if err := s.creds.Upsert(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}
	s.resolver.Forget(ctx, user.ID)

	result := &ConnectResult{User: user}
	discovered, err := s.discoverer.Discover(ctx, refreshToken, user.ID)
	if err != nil {
		log.Printf("%s⚠️ Account discovery failed after OAuth for user %s: %v", logging.Prefix(ctx), user.ID, err)
		if hint := ads.ErrorHint(err); hint != "" {
			result.Warning = hint
		} else {
			result.Warning = "Account auto-discovery failed: " + apperrors.Message(err)
		}
		return result, nil
	}
	result.Discovered = len(discovered)
	log.Printf("%s✅ Connected %s (user %s), %d account(s) linked", logging.Prefix(ctx), user.Email, user.ID, len(discovered))
	return result, nil
}

// User returns a *apperrors.UserNotFoundError for an unknown id.
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, &apperrors.UserNotFoundError{UserID: userID}
	}
	return user, err
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *Service) LinkedAccounts(ctx context.Context, userID string) ([]models.AccountAssociation, error) {
	return s.links.List(ctx, userID)
}

// SelectAccounts replaces the user's selection. An empty list clears it.
func (s *Service) SelectAccounts(ctx context.Context, userID string, customerIDs []string) ([]models.AccountAssociation, error) {
	accounts, err := s.links.SelectSubset(ctx, userID, customerIDs)
	if err != nil {
		return nil, err
	}
	s.resolver.Forget(ctx, userID)
	return accounts, nil
}

// SetDefaultAccount makes customerID the only selected account.
func (s *Service) SetDefaultAccount(ctx context.Context, userID, customerID string) ([]models.AccountAssociation, error) {
	return s.SelectAccounts(ctx, userID, []string{customerID})
}

// Disconnect unlinks customerID from the user.
func (s *Service) Disconnect(ctx context.Context, userID, customerID string) ([]models.AccountAssociation, error) {
	accounts, err := s.links.Remove(ctx, userID, customerID)
	if err != nil {
		return nil, err
	}
	s.resolver.Forget(ctx, userID)
	return accounts, nil
}

// UserStatus is a user's connection state.
type UserStatus struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	IsConnected      bool     `json:"isConnected"`
	LinkedAccounts   []string `json:"linkedAccounts"`
	SelectedAccounts []string `json:"selectedAccounts"`
}

func (s *Service) Status(ctx context.Context, userID string) (*UserStatus, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	connected := true
	if _, err := s.RefreshToken(ctx, userID); err != nil {
		var notConnected *apperrors.NotConnectedError
		if !errors.As(err, &notConnected) {
			return nil, err
		}
		connected = false
	}
	links, err := s.links.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	selected := db.SelectedIDs(links)
	if selected == nil {
		selected = []string{}
	}
	return &UserStatus{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		IsConnected:      connected,
		LinkedAccounts:   db.CustomerIDs(links),
		SelectedAccounts: selected,
	}, nil
}
