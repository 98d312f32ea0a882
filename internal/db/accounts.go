package db

import (
	"context"

	"github.com/pysugar/ads-account-gateway/internal/customerid"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountStore persists user to advertiser-account links and the per-user
// selection filter carried by IsDefault.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Associate links customerID to userID. Repeat calls leave the existing row,
// including its selection flag, untouched.
func (s *AccountStore) Associate(ctx context.Context, userID, customerID string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "customer_id"}},
		DoNothing: true,
	}).Create(&models.AccountAssociation{
		UserID:     userID,
		CustomerID: customerid.Normalize(customerID),
	}).Error
}

// List returns the user's links ordered by customer ID.
func (s *AccountStore) List(ctx context.Context, userID string) ([]models.AccountAssociation, error) {
	var accounts []models.AccountAssociation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("customer_id ASC").
		Find(&accounts).Error
	return accounts, err
}

// SelectSubset replaces the user's selection with exactly customerIDs. An
// empty slice clears the selection so every linked account is usable again.
// IDs that are not linked are ignored.
func (s *AccountStore) SelectSubset(ctx context.Context, userID string, customerIDs []string) ([]models.AccountAssociation, error) {
	ids := customerid.Unique(customerIDs...)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AccountAssociation{}).
			Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.AccountAssociation{}).
			Where("user_id = ? AND customer_id IN ?", userID, ids).
			Update("is_default", true).Error
	})
	if err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// Remove unlinks customerID and returns the remaining links.
func (s *AccountStore) Remove(ctx context.Context, userID, customerID string) ([]models.AccountAssociation, error) {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND customer_id = ?", userID, customerid.Normalize(customerID)).
		Delete(&models.AccountAssociation{}).Error
	if err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// IsUsable reports whether the user may act on customerID: the account must be
// linked, and when any selection exists it must be part of it.
func (s *AccountStore) IsUsable(ctx context.Context, userID, customerID string) (bool, error) {
	var link models.AccountAssociation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND customer_id = ?", userID, customerid.Normalize(customerID)).
		First(&link).Error
	if err != nil {
		if notFound(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if link.IsDefault {
		return true, nil
	}

	var selected int64
	if err := s.db.WithContext(ctx).Model(&models.AccountAssociation{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Count(&selected).Error; err != nil {
		return false, err
	}
	return selected == 0, nil
}

// SelectedIDs returns the customer IDs of the user's selection, in store order.
func SelectedIDs(accounts []models.AccountAssociation) []string {
	var ids []string
	for _, a := range accounts {
		if a.IsDefault {
			ids = append(ids, a.CustomerID)
		}
	}
	return ids
}

// CustomerIDs returns every linked customer ID, in store order.
func CustomerIDs(accounts []models.AccountAssociation) []string {
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.CustomerID)
	}
	return ids
}
