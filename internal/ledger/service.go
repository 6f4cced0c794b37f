package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db"
	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
	"github.com/vendorhub/marketplace-backend/pkg/metrics"
)

// Service exposes the stock ledger operations.
type Service interface {
	ReduceStock(ctx context.Context, input ReduceStockInput) (*ReduceStockResult, error)
	RollbackStock(ctx context.Context, transactionID string) (*RollbackStockResult, error)
	IncreaseStock(ctx context.Context, productID uuid.UUID, qty int) (*StockLevel, error)
	FindStock(ctx context.Context, productID uuid.UUID) (*StockLevel, error)
}

// ReduceLine is one product decrement inside a reduction request.
type ReduceLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// ReduceStockInput carries the correlation id and the lines to decrement.
type ReduceStockInput struct {
	TransactionID string       `json:"transaction_id"`
	Lines         []ReduceLine `json:"lines"`
}

// ReduceStockResult reports the recorded reduction.
type ReduceStockResult struct {
	TransactionID string       `json:"transaction_id"`
	Lines         []ReduceLine `json:"lines"`
}

// RollbackStockResult reports how many open lines were restored. A second
// rollback of the same transaction succeeds with zero restored lines.
type RollbackStockResult struct {
	TransactionID string `json:"transaction_id"`
	RestoredLines int    `json:"restored_lines"`
}

// StockLevel is the current stock for one product.
type StockLevel struct {
	ProductID uuid.UUID `json:"product_id"`
	Stock     int       `json:"stock"`
}

type service struct {
	repo     Repository
	dbClient *db.Client
	metrics  *metrics.StockMetrics
}

// NewService wires a stock ledger service with its repository and DB client.
// Metrics may be nil when the caller does not record them.
func NewService(repo Repository, dbClient *db.Client, stockMetrics *metrics.StockMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient, metrics: stockMetrics}, nil
}

// ReduceStock decrements stock for every line and appends one transaction
// record per line. The whole call is all-or-nothing: it runs inside a single
// DB transaction, and any failing line rolls back every earlier line.
func (s *service) ReduceStock(ctx context.Context, input ReduceStockInput) (*ReduceStockResult, error) {
	start := time.Now()

	if input.TransactionID == "" {
		s.metrics.IncFailure("reduce", "invalid_input")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if len(input.Lines) == 0 {
		s.metrics.IncFailure("reduce", "invalid_input")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, line := range input.Lines {
			if err := reduceLine(ctx, repo, input.TransactionID, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("reduce", failureReason(err))
		return nil, err
	}

	s.metrics.IncSuccess("reduce")
	s.metrics.ObserveDuration("reduce", time.Since(start))
	return &ReduceStockResult{TransactionID: input.TransactionID, Lines: input.Lines}, nil
}

func reduceLine(ctx context.Context, repo Repository, transactionID string, line ReduceLine) error {
	if line.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity for product %s must be at least 1", line.ProductID))
	}

	ok, err := repo.DecrementStock(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
	}
	if !ok {
		// The guard rejected the update. Distinguish a missing product from
		// insufficient stock.
		exists, err := repo.ProductExists(ctx, line.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking product")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s not found", line.ProductID))
		}
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("insufficient stock for product %s", line.ProductID))
	}

	record := &models.StockTransaction{
		ID:            uuid.New(),
		TransactionID: transactionID,
		ProductID:     line.ProductID,
		Stock:         line.Quantity,
		RolledBack:    false,
	}
	if err := repo.CreateTransaction(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording stock transaction")
	}
	return nil
}

// RollbackStock restores stock for every open line of the transaction and
// flips rolled_back. Rolling back a transaction with no open lines is a
// successful no-op, which makes the operation safe to retry.
func (s *service) RollbackStock(ctx context.Context, transactionID string) (*RollbackStockResult, error) {
	start := time.Now()

	if transactionID == "" {
		s.metrics.IncFailure("rollback", "invalid_input")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	restored := 0
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		records, err := repo.ListOpenByTransactionID(ctx, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stock transactions")
		}
		for _, record := range records {
			ok, err := repo.IncrementStock(ctx, record.ProductID, record.Stock)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restoring stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("product %s not found", record.ProductID))
			}
			if err := repo.MarkRolledBack(ctx, record.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking transaction rolled back")
			}
			restored++
		}
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("rollback", failureReason(err))
		return nil, err
	}

	s.metrics.IncSuccess("rollback")
	s.metrics.ObserveDuration("rollback", time.Since(start))
	return &RollbackStockResult{TransactionID: transactionID, RestoredLines: restored}, nil
}

// IncreaseStock adds qty to the product's stock. Increases are administrative
// corrections and intentionally leave no transaction record.
func (s *service) IncreaseStock(ctx context.Context, productID uuid.UUID, qty int) (*StockLevel, error) {
	start := time.Now()

	if productID == uuid.Nil {
		s.metrics.IncFailure("increase", "invalid_input")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty < 1 {
		s.metrics.IncFailure("increase", "invalid_input")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	ok, err := s.repo.IncrementStock(ctx, productID, qty)
	if err != nil {
		s.metrics.IncFailure("increase", "internal")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "incrementing stock")
	}
	if !ok {
		s.metrics.IncFailure("increase", "not_found")
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("product %s not found", productID))
	}

	stock, err := s.repo.GetStock(ctx, productID)
	if err != nil {
		s.metrics.IncFailure("increase", "internal")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading stock")
	}

	s.metrics.IncSuccess("increase")
	s.metrics.ObserveDuration("increase", time.Since(start))
	return &StockLevel{ProductID: productID, Stock: stock}, nil
}

// FindStock returns the current stock level for the product.
func (s *service) FindStock(ctx context.Context, productID uuid.UUID) (*StockLevel, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	stock, err := s.repo.GetStock(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s not found", productID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading stock")
	}
	return &StockLevel{ProductID: productID, Stock: stock}, nil
}

func failureReason(err error) string {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code() {
		case pkgerrors.CodeValidation:
			return "invalid_input"
		case pkgerrors.CodeNotFound:
			return "not_found"
		case pkgerrors.CodeConflict:
			return "insufficient_stock"
		}
	}
	return "internal"
}
