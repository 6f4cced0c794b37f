package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	"github.com/vendorhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}, &models.CustomerProfile{}, &models.VendorProfile{}))

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, role enums.Role) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Name:         "Sam",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user.ID
}

func TestGetMeWithVendorProfile(t *testing.T) {
	svc, conn := newTestService(t)
	userID := seedUser(t, conn, enums.RoleVendor)
	require.NoError(t, conn.Create(&models.VendorProfile{
		ID:           uuid.New(),
		UserID:       userID,
		BusinessName: "Acme Supplies",
		Address:      "1 Main St",
	}).Error)

	me, err := svc.GetMe(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, userID, me.User.ID)
	require.NotNil(t, me.Profile)
	require.Equal(t, "Acme Supplies", me.Profile.DisplayName)
}

func TestGetMeToleratesMissingProfile(t *testing.T) {
	svc, conn := newTestService(t)
	userID := seedUser(t, conn, enums.RoleAdmin)

	me, err := svc.GetMe(context.Background(), userID)
	require.NoError(t, err)
	require.Nil(t, me.Profile)
}

func TestGetMeUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetMe(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfileCustomer(t *testing.T) {
	svc, conn := newTestService(t)
	userID := seedUser(t, conn, enums.RoleCustomer)
	require.NoError(t, conn.Create(&models.CustomerProfile{
		ID:       uuid.New(),
		UserID:   userID,
		FullName: "Old Name",
	}).Error)

	name := "New Name"
	phone := "555-0100"
	me, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileInput{
		DisplayName: &name,
		PhoneNumber: &phone,
	})
	require.NoError(t, err)
	require.Equal(t, "New Name", me.Profile.DisplayName)
	require.Equal(t, "555-0100", me.Profile.PhoneNumber)

	var stored models.CustomerProfile
	require.NoError(t, conn.First(&stored, "user_id = ?", userID).Error)
	require.Equal(t, "New Name", stored.FullName)
}

func TestUpdateProfileRejectsEmptyName(t *testing.T) {
	svc, conn := newTestService(t)
	userID := seedUser(t, conn, enums.RoleVendor)
	require.NoError(t, conn.Create(&models.VendorProfile{
		ID:           uuid.New(),
		UserID:       userID,
		BusinessName: "Acme",
	}).Error)

	empty := "   "
	_, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileInput{DisplayName: &empty})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
