package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a vendor listing. Stock is mutated only by the stock
// ledger (guarded atomic updates) or an explicit administrative update.
type Product struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name       string          `gorm:"column:name;type:text;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock      int             `gorm:"column:stock;not null;default:0"`
	VendorID   uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index"`
	ImageURL   *string         `gorm:"column:image_url"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
