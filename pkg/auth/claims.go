package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vendorhub/marketplace-backend/pkg/enums"
)

// Capability is a named action a caller may perform. Handlers check
// capabilities, not raw role strings, so role-to-permission mapping lives in
// exactly one place.
type Capability string

const (
	CapManageCatalog Capability = "manage_catalog"
	CapManageStock   Capability = "manage_stock"
	CapPlaceOrders   Capability = "place_orders"
	CapAdministrate  Capability = "administrate"
	CapManageProfile Capability = "manage_profile"
	CapBrowseCatalog Capability = "browse_catalog"
)

var capabilitiesByRole = map[enums.Role][]Capability{
	enums.RoleCustomer: {CapPlaceOrders, CapManageProfile, CapBrowseCatalog},
	enums.RoleVendor:   {CapManageCatalog, CapManageStock, CapManageProfile, CapBrowseCatalog},
	enums.RoleAdmin:    {CapManageCatalog, CapManageStock, CapPlaceOrders, CapAdministrate, CapManageProfile, CapBrowseCatalog},
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. It is decoded
// once by the auth middleware; downstream code asks Can() instead of poking at
// claim strings.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Can reports whether the claim holder's role grants the capability.
func (c *AccessTokenClaims) Can(capability Capability) bool {
	if c == nil {
		return false
	}
	for _, granted := range capabilitiesByRole[c.Role] {
		if granted == capability {
			return true
		}
	}
	return false
}
