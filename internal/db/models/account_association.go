package models

import "time"

// AccountAssociation links a user to an advertiser account (customer ID,
// digits only). IsDefault marks the account as part of the user's selection.
type AccountAssociation struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_user_customer,priority:1" json:"user_id"`
	CustomerID string    `gorm:"not null;uniqueIndex:idx_user_customer,priority:2" json:"customer_id"`
	IsDefault  bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AccountAssociation) TableName() string {
	return "account_associations"
}
