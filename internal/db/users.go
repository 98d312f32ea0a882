package db

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStore persists application users.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// UpsertByEmail creates the user on first sight of email, otherwise refreshes
// the display name when one is supplied. The user ID never changes.
func (s *UserStore) UpsertByEmail(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	candidate := models.User{ID: uuid.New().String(), Email: email, Name: name}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return err
		}
		if name != "" {
			if err := tx.Model(&models.User{}).Where("email = ?", email).Update("name", name).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Get returns ErrNotFound for an unknown id.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("email ASC").Find(&users).Error
	return users, err
}
