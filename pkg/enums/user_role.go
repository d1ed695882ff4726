package enums

import (
	"fmt"
	"strings"
)

// UserRole is the platform-wide role stamped on users and access tokens.
type UserRole string

const (
	UserRoleCustomer   UserRole = "customer"
	UserRoleRestaurant UserRole = "restaurant"
	UserRoleDelivery   UserRole = "delivery"
	UserRoleAdmin      UserRole = "admin"
	// UserRoleSystem is never persisted; jobs use it as the acting role.
	UserRoleSystem UserRole = "system"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleRestaurant,
	UserRoleDelivery,
	UserRoleAdmin,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the role can be assigned to a user.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// SelfRegisterable reports whether signup may request this role.
func (r UserRole) SelfRegisterable() bool {
	return r.IsValid() && r != UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
