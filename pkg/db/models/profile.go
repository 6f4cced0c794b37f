package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerProfile holds the buyer-facing contact record for a user.
type CustomerProfile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FullName    string    `gorm:"column:full_name;not null"`
	Address     string    `gorm:"column:address;not null;default:''"`
	PhoneNumber string    `gorm:"column:phone_number;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// VendorProfile holds the selling entity record for a vendor user.
type VendorProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BusinessName string    `gorm:"column:business_name;not null;default:''"`
	Address      string    `gorm:"column:address;not null;default:''"`
	PhoneNumber  string    `gorm:"column:phone_number;not null;default:''"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
