package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), &gormCategoryLookup{db: conn})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

type gormCategoryLookup struct {
	db *gorm.DB
}

func (g *gormCategoryLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := g.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func seedCategory(t *testing.T, conn *gorm.DB, name string) uuid.UUID {
	t.Helper()
	category := models.Category{ID: uuid.New(), Name: name}
	if err := conn.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category.ID
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	categoryID := seedCategory(t, conn, "Electronics")
	vendorID := uuid.New()

	product, err := svc.CreateProduct(ctx, vendorID, CreateProductInput{
		Name:       "Laptop",
		Price:      decimal.RequireFromString("999.99"),
		Stock:      10,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}
	if product.ID == uuid.Nil || product.VendorID != vendorID {
		t.Fatalf("unexpected product: %+v", product)
	}
	if !product.Price.Equal(decimal.RequireFromString("999.99")) {
		t.Fatalf("price = %s", product.Price)
	}

	cases := []struct {
		name  string
		input CreateProductInput
		code  pkgerrors.Code
	}{
		{
			name:  "blank name",
			input: CreateProductInput{Name: " ", Price: decimal.NewFromInt(1), CategoryID: categoryID},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "negative price",
			input: CreateProductInput{Name: "X", Price: decimal.NewFromInt(-1), CategoryID: categoryID},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "negative stock",
			input: CreateProductInput{Name: "X", Price: decimal.NewFromInt(1), Stock: -1, CategoryID: categoryID},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "unknown category",
			input: CreateProductInput{Name: "X", Price: decimal.NewFromInt(1), CategoryID: uuid.New()},
			code:  pkgerrors.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, vendorID, tc.input)
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	categoryID := seedCategory(t, conn, "Electronics")
	otherCategory := seedCategory(t, conn, "Accessories")

	product, err := svc.CreateProduct(ctx, uuid.New(), CreateProductInput{
		Name:       "Laptop",
		Price:      decimal.NewFromInt(1000),
		Stock:      5,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	newName := "Gaming Laptop"
	newPrice := decimal.RequireFromString("1299.50")
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{
		Name:       &newName,
		Price:      &newPrice,
		CategoryID: &otherCategory,
	})
	if err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}
	if updated.Name != newName || !updated.Price.Equal(newPrice) || updated.CategoryID != otherCategory {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.Stock != 5 {
		t.Fatalf("stock changed by partial update: %d", updated.Stock)
	}

	missing := uuid.New()
	if _, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{CategoryID: &missing}); err == nil {
		t.Fatal("expected not found for unknown category")
	}
	if _, err := svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{Name: &newName}); err == nil {
		t.Fatal("expected not found for unknown product")
	}
}

func TestDeleteProduct(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	categoryID := seedCategory(t, conn, "Electronics")

	product, err := svc.CreateProduct(ctx, uuid.New(), CreateProductInput{
		Name:       "Laptop",
		Price:      decimal.NewFromInt(1000),
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("DeleteProduct error: %v", err)
	}
	if _, err := svc.FindOne(ctx, product.ID); err == nil {
		t.Fatal("expected deleted product to be gone")
	}
	if err := svc.DeleteProduct(ctx, product.ID); err == nil {
		t.Fatal("expected not found deleting twice")
	}
}

func TestFindByNameAndCategory(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	electronics := seedCategory(t, conn, "Electronics")
	clothing := seedCategory(t, conn, "Clothing")
	vendorID := uuid.New()

	for _, seed := range []struct {
		name     string
		category uuid.UUID
	}{
		{"Gaming Laptop", electronics},
		{"laptop sleeve", clothing},
		{"Phone", electronics},
	} {
		if _, err := svc.CreateProduct(ctx, vendorID, CreateProductInput{
			Name:       seed.name,
			Price:      decimal.NewFromInt(10),
			CategoryID: seed.category,
		}); err != nil {
			t.Fatalf("seed product %q: %v", seed.name, err)
		}
	}

	// Case-insensitive partial match.
	matches, err := svc.FindByName(ctx, "LAPTOP")
	if err != nil {
		t.Fatalf("FindByName error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("FindByName returned %d products, want 2", len(matches))
	}

	if _, err := svc.FindByName(ctx, "  "); err == nil {
		t.Fatal("expected validation error for blank search term")
	}

	inElectronics, err := svc.FindByCategory(ctx, electronics)
	if err != nil {
		t.Fatalf("FindByCategory error: %v", err)
	}
	if len(inElectronics) != 2 {
		t.Fatalf("FindByCategory returned %d, want 2", len(inElectronics))
	}

	if _, err := svc.FindByCategory(ctx, uuid.New()); err == nil {
		t.Fatal("expected not found for unknown category")
	}

	all, err := svc.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("FindAll returned %d, want 3", len(all))
	}
}
