package models

import (
	"time"

	"github.com/google/uuid"
)

// StockTransaction is an append-only record of a single stock reduction.
// TransactionID is the caller-supplied correlation id; multiple line items of
// one order share it. RolledBack flips false to true exactly once.
type StockTransaction struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID string    `gorm:"column:transaction_id;type:text;not null;index"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Stock         int       `gorm:"column:stock;not null"`
	RolledBack    bool      `gorm:"column:rolled_back;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
