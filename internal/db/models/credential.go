package models

import "time"

// Credential stores the long-lived advertising API refresh token for a user.
// One row per user.
type Credential struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"uniqueIndex;not null"`
	RefreshToken string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Credential) TableName() string {
	return "google_ads_credentials"
}
