package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db/models"
)

// Repository manages persistence for stock levels and stock transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
	GetStock(ctx context.Context, productID uuid.UUID) (int, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	CreateTransaction(ctx context.Context, record *models.StockTransaction) error
	ListOpenByTransactionID(ctx context.Context, transactionID string) ([]models.StockTransaction, error)
	MarkRolledBack(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Select("id", "stock").
		First(&product, "id = ?", productID).Error; err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// DecrementStock applies a guarded atomic decrement. The stock >= qty guard
// makes the check-and-subtract a single statement, so concurrent reducers
// cannot drive stock negative. Returns false when no row matched, which means
// the product is missing or its stock is insufficient.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementStock applies an unconditional atomic add. Returns false when the
// product does not exist.
func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, record *models.StockTransaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListOpenByTransactionID(ctx context.Context, transactionID string) ([]models.StockTransaction, error) {
	var records []models.StockTransaction
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND rolled_back = ?", transactionID, false).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) MarkRolledBack(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.StockTransaction{}).
		Where("id = ?", id).
		UpdateColumn("rolled_back", true).Error
}
