package models

import "time"

// User is an application identity, keyed naturally by the email returned
// from the OAuth consent.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"` // UUID
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
