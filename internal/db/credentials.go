package db

import (
	"context"

	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialStore persists one refresh token per user.
type CredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns ErrNotFound when the user has never connected.
func (s *CredentialStore) Get(ctx context.Context, userID string) (*models.Credential, error) {
	var cred models.Credential
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cred).Error; err != nil {
		return nil, notFound(err)
	}
	return &cred, nil
}

// Upsert stores token for userID. A row is created if none exists (even with
// an empty token), but an existing token is only ever replaced by a non-empty one.
func (s *CredentialStore) Upsert(ctx context.Context, userID, token string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Credential{UserID: userID, RefreshToken: token}).Error; err != nil {
			return err
		}
		if token == "" {
			return nil
		}
		return tx.Model(&models.Credential{}).
			Where("user_id = ?", userID).
			Update("refresh_token", token).Error
	})
}
