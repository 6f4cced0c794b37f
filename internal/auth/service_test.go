package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/internal/users"
	pkgAuth "github.com/vendorhub/marketplace-backend/pkg/auth"
	"github.com/vendorhub/marketplace-backend/pkg/config"
	"github.com/vendorhub/marketplace-backend/pkg/db"
	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	"github.com/vendorhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "vendorhub-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.CustomerProfile{}, &models.VendorProfile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		DBClient:       db.NewWithConn(conn),
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:    "Vendor@Example.com",
		Password: "correct horse battery",
		Name:     "Acme Supplies",
		Role:     "vendor",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if registered.User.Email != "vendor@example.com" {
		t.Fatalf("email not normalized: %q", registered.User.Email)
	}
	if registered.User.Role != enums.RoleVendor {
		t.Fatalf("role = %s, want vendor", registered.User.Role)
	}
	if registered.AccessToken == "" {
		t.Fatal("expected access token")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != registered.User.ID || claims.Role != enums.RoleVendor {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.Can(pkgAuth.CapManageStock) {
		t.Fatal("vendor claims should grant stock management")
	}
	if claims.Can(pkgAuth.CapAdministrate) {
		t.Fatal("vendor claims should not grant administration")
	}

	logged, err := svc.Login(ctx, LoginRequest{
		Email:    "vendor@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if logged.User.ID != registered.User.ID {
		t.Fatalf("login returned different user")
	}
	if logged.User.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		Email:    "customer@example.com",
		Password: "password-123",
		Name:     "Jess",
		Role:     "customer",
	}); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	cases := []struct {
		name string
		req  RegisterRequest
		code pkgerrors.Code
	}{
		{
			name: "duplicate email",
			req: RegisterRequest{
				Email:    "customer@example.com",
				Password: "password-123",
				Name:     "Other",
				Role:     "customer",
			},
			code: pkgerrors.CodeConflict,
		},
		{
			name: "admin role rejected",
			req: RegisterRequest{
				Email:    "admin@example.com",
				Password: "password-123",
				Name:     "Admin",
				Role:     "admin",
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unknown role",
			req: RegisterRequest{
				Email:    "x@example.com",
				Password: "password-123",
				Name:     "X",
				Role:     "wizard",
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "blank name",
			req: RegisterRequest{
				Email:    "y@example.com",
				Password: "password-123",
				Name:     "  ",
				Role:     "customer",
			},
			code: pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		Email:    "customer@example.com",
		Password: "password-123",
		Name:     "Jess",
		Role:     "customer",
	}); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	for name, req := range map[string]LoginRequest{
		"wrong password": {Email: "customer@example.com", Password: "nope"},
		"unknown email":  {Email: "ghost@example.com", Password: "password-123"},
		"blank email":    {Password: "password-123"},
	} {
		if _, err := svc.Login(ctx, req); err == nil {
			t.Fatalf("%s: expected unauthorized", name)
		} else if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}
