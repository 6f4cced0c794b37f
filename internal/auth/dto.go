package auth

import (
	"github.com/vendorhub/marketplace-backend/internal/users"
)

// RegisterRequest is the payload to create a new account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Name        string `json:"name" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=customer vendor"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// LoginRequest is the payload to authenticate an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the signed access token and the account it belongs to.
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	User        users.UserDTO `json:"user"`
}
