package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	authsvc "github.com/vendorhub/marketplace-backend/internal/auth"
	"github.com/vendorhub/marketplace-backend/internal/users"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, req authsvc.RegisterRequest) (*authsvc.AuthResponse, error)
	loginFn    func(ctx context.Context, req authsvc.LoginRequest) (*authsvc.AuthResponse, error)
}

func (s *stubAuthService) Register(ctx context.Context, req authsvc.RegisterRequest) (*authsvc.AuthResponse, error) {
	return s.registerFn(ctx, req)
}

func (s *stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.AuthResponse, error) {
	return s.loginFn(ctx, req)
}

func TestAuthRegisterCreated(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, req authsvc.RegisterRequest) (*authsvc.AuthResponse, error) {
			if req.Email != "new@example.com" {
				t.Fatalf("unexpected email %s", req.Email)
			}
			return &authsvc.AuthResponse{
				AccessToken: "token",
				User:        users.UserDTO{ID: uuid.New(), Email: req.Email},
			}, nil
		},
	}

	body := `{"email":"new@example.com","password":"password123","name":"New Vendor","role":"vendor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	AuthRegister(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"access_token":"token"`) {
		t.Fatalf("expected token in body: %s", rec.Body.String())
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, authsvc.RegisterRequest) (*authsvc.AuthResponse, error) {
			t.Fatal("service must not be called for invalid payloads")
			return nil, nil
		},
	}

	cases := []struct {
		name string
		body string
	}{
		{name: "missing email", body: `{"password":"password123","name":"x","role":"vendor"}`},
		{name: "short password", body: `{"email":"a@b.com","password":"short","name":"x","role":"vendor"}`},
		{name: "admin role rejected", body: `{"email":"a@b.com","password":"password123","name":"x","role":"admin"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			AuthRegister(stub, testLogger()).ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthLoginBadCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, authsvc.LoginRequest) (*authsvc.AuthResponse, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		},
	}

	body := `{"email":"a@b.com","password":"wrongpass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	AuthLogin(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid credentials") {
		t.Fatalf("expected invalid credentials message: %s", rec.Body.String())
	}
}
