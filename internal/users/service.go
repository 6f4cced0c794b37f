package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	"github.com/vendorhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

// Service exposes the authenticated account surface.
type Service interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*MeDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*MeDTO, error)
}

// UpdateProfileInput holds optional profile mutations. DisplayName maps to
// the customer's full name or the vendor's business name.
type UpdateProfileInput struct {
	DisplayName *string
	Address     *string
	PhoneNumber *string
}

type service struct {
	repo Repository
}

// NewService wires a users service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetMe(ctx context.Context, userID uuid.UUID) (*MeDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	return &MeDTO{User: FromModel(user), Profile: profile}, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*MeDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch user.Role {
	case enums.RoleVendor:
		profile, err := s.repo.FindVendorProfile(ctx, userID)
		if err != nil {
			return nil, profileLoadError(err)
		}
		if input.DisplayName != nil {
			name := strings.TrimSpace(*input.DisplayName)
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name cannot be empty")
			}
			profile.BusinessName = name
		}
		if input.Address != nil {
			profile.Address = strings.TrimSpace(*input.Address)
		}
		if input.PhoneNumber != nil {
			profile.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
		}
		if err := s.repo.SaveVendorProfile(ctx, profile); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving vendor profile")
		}
		return &MeDTO{User: FromModel(user), Profile: fromVendorProfile(profile)}, nil

	default:
		profile, err := s.repo.FindCustomerProfile(ctx, userID)
		if err != nil {
			return nil, profileLoadError(err)
		}
		if input.DisplayName != nil {
			name := strings.TrimSpace(*input.DisplayName)
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
			}
			profile.FullName = name
		}
		if input.Address != nil {
			profile.Address = strings.TrimSpace(*input.Address)
		}
		if input.PhoneNumber != nil {
			profile.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
		}
		if err := s.repo.SaveCustomerProfile(ctx, profile); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving customer profile")
		}
		return &MeDTO{User: FromModel(user), Profile: fromCustomerProfile(profile)}, nil
	}
}

func (s *service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return user, nil
}

// loadProfile tolerates a missing profile row; admins have none.
func (s *service) loadProfile(ctx context.Context, user *models.User) (*ProfileDTO, error) {
	switch user.Role {
	case enums.RoleVendor:
		profile, err := s.repo.FindVendorProfile(ctx, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vendor profile")
		}
		return fromVendorProfile(profile), nil
	case enums.RoleCustomer:
		profile, err := s.repo.FindCustomerProfile(ctx, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer profile")
		}
		return fromCustomerProfile(profile), nil
	default:
		return nil, nil
	}
}

func profileLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading profile")
}
