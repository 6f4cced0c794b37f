package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db"
	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.StockTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		Name:       "widget",
		Price:      decimal.NewFromInt(10),
		Stock:      stock,
		VendorID:   uuid.New(),
		CategoryID: uuid.New(),
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func loadStock(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestReduceStockRecordsTransactions(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	productA := seedProduct(t, conn, 10)
	productB := seedProduct(t, conn, 3)

	result, err := svc.ReduceStock(ctx, ReduceStockInput{
		TransactionID: "order-1",
		Lines: []ReduceLine{
			{ProductID: productA, Quantity: 4},
			{ProductID: productB, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("ReduceStock error: %v", err)
	}
	if result.TransactionID != "order-1" || len(result.Lines) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if got := loadStock(t, conn, productA); got != 6 {
		t.Fatalf("product a stock = %d, want 6", got)
	}
	if got := loadStock(t, conn, productB); got != 0 {
		t.Fatalf("product b stock = %d, want 0", got)
	}

	var records []models.StockTransaction
	if err := conn.Where("transaction_id = ?", "order-1").Find(&records).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 transaction records, got %d", len(records))
	}
	for _, record := range records {
		if record.RolledBack {
			t.Fatalf("fresh transaction record marked rolled back: %+v", record)
		}
	}
}

func TestReduceStockAllOrNothing(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	productA := seedProduct(t, conn, 10)
	productB := seedProduct(t, conn, 1)

	_, err := svc.ReduceStock(ctx, ReduceStockInput{
		TransactionID: "order-2",
		Lines: []ReduceLine{
			{ProductID: productA, Quantity: 4},
			{ProductID: productB, Quantity: 2},
		},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	// The failing second line must roll back the first.
	if got := loadStock(t, conn, productA); got != 10 {
		t.Fatalf("product a stock = %d, want 10", got)
	}
	if got := loadStock(t, conn, productB); got != 1 {
		t.Fatalf("product b stock = %d, want 1", got)
	}

	var count int64
	if err := conn.Model(&models.StockTransaction{}).Where("transaction_id = ?", "order-2").Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no transaction records, got %d", count)
	}
}

func TestReduceStockValidation(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 5)

	tests := []struct {
		name  string
		input ReduceStockInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing transaction id",
			input: ReduceStockInput{Lines: []ReduceLine{{ProductID: product, Quantity: 1}}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "no lines",
			input: ReduceStockInput{TransactionID: "order-3"},
			code:  pkgerrors.CodeValidation,
		},
		{
			name: "quantity below one",
			input: ReduceStockInput{
				TransactionID: "order-3",
				Lines:         []ReduceLine{{ProductID: product, Quantity: 0}},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unknown product",
			input: ReduceStockInput{
				TransactionID: "order-3",
				Lines:         []ReduceLine{{ProductID: uuid.New(), Quantity: 1}},
			},
			code: pkgerrors.CodeNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ReduceStock(ctx, tc.input)
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}

	if got := loadStock(t, conn, product); got != 5 {
		t.Fatalf("stock changed by failed reductions: %d", got)
	}
}

func TestRollbackStockRestoresAndIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	productA := seedProduct(t, conn, 10)
	productB := seedProduct(t, conn, 5)

	_, err := svc.ReduceStock(ctx, ReduceStockInput{
		TransactionID: "order-4",
		Lines: []ReduceLine{
			{ProductID: productA, Quantity: 3},
			{ProductID: productB, Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("ReduceStock error: %v", err)
	}

	result, err := svc.RollbackStock(ctx, "order-4")
	if err != nil {
		t.Fatalf("RollbackStock error: %v", err)
	}
	if result.RestoredLines != 2 {
		t.Fatalf("restored lines = %d, want 2", result.RestoredLines)
	}

	if got := loadStock(t, conn, productA); got != 10 {
		t.Fatalf("product a stock = %d, want 10", got)
	}
	if got := loadStock(t, conn, productB); got != 5 {
		t.Fatalf("product b stock = %d, want 5", got)
	}

	// Second rollback is a successful no-op.
	again, err := svc.RollbackStock(ctx, "order-4")
	if err != nil {
		t.Fatalf("second RollbackStock error: %v", err)
	}
	if again.RestoredLines != 0 {
		t.Fatalf("second rollback restored %d lines, want 0", again.RestoredLines)
	}
	if got := loadStock(t, conn, productA); got != 10 {
		t.Fatalf("product a stock after double rollback = %d, want 10", got)
	}

	var open int64
	if err := conn.Model(&models.StockTransaction{}).
		Where("transaction_id = ? AND rolled_back = ?", "order-4", false).
		Count(&open).Error; err != nil {
		t.Fatalf("count open transactions: %v", err)
	}
	if open != 0 {
		t.Fatalf("expected all records rolled back, %d still open", open)
	}
}

func TestRollbackUnknownTransactionIsNoOp(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	result, err := svc.RollbackStock(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("RollbackStock error: %v", err)
	}
	if result.RestoredLines != 0 {
		t.Fatalf("restored lines = %d, want 0", result.RestoredLines)
	}
}

func TestIncreaseStockLeavesNoRecord(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 2)

	level, err := svc.IncreaseStock(ctx, product, 7)
	if err != nil {
		t.Fatalf("IncreaseStock error: %v", err)
	}
	if level.Stock != 9 {
		t.Fatalf("stock = %d, want 9", level.Stock)
	}

	var count int64
	if err := conn.Model(&models.StockTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("increase must not write transaction records, found %d", count)
	}
}

func TestIncreaseStockValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.IncreaseStock(ctx, uuid.New(), 0); err == nil {
		t.Fatal("expected invalid quantity error")
	}
	if _, err := svc.IncreaseStock(ctx, uuid.New(), 3); err == nil {
		t.Fatal("expected not found error")
	} else if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindStock(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 42)

	level, err := svc.FindStock(ctx, product)
	if err != nil {
		t.Fatalf("FindStock error: %v", err)
	}
	if level.Stock != 42 {
		t.Fatalf("stock = %d, want 42", level.Stock)
	}

	if _, err := svc.FindStock(ctx, uuid.New()); err == nil {
		t.Fatal("expected not found error")
	} else if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
