package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	"github.com/vendorhub/marketplace-backend/pkg/enums"
)

// UserDTO is the public account shape. The password hash never leaves the
// service layer.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        enums.Role `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProfileDTO is the role-specific profile attached to an account. DisplayName
// holds the customer's full name or the vendor's business name.
type ProfileDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phone_number"`
}

// MeDTO bundles the account with its profile for the /users/me surface.
type MeDTO struct {
	User    UserDTO     `json:"user"`
	Profile *ProfileDTO `json:"profile"`
}

// FromModel maps a user row to its public DTO.
func FromModel(user *models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func fromCustomerProfile(profile *models.CustomerProfile) *ProfileDTO {
	if profile == nil {
		return nil
	}
	return &ProfileDTO{
		ID:          profile.ID,
		DisplayName: profile.FullName,
		Address:     profile.Address,
		PhoneNumber: profile.PhoneNumber,
	}
}

func fromVendorProfile(profile *models.VendorProfile) *ProfileDTO {
	if profile == nil {
		return nil
	}
	return &ProfileDTO{
		ID:          profile.ID,
		DisplayName: profile.BusinessName,
		Address:     profile.Address,
		PhoneNumber: profile.PhoneNumber,
	}
}
