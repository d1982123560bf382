package models

import "fmt"

// Role is the access tier of an authenticated identity. It is a closed
// type: only the constants below are valid values, and ParseRole rejects
// anything else instead of falling back to a default.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleAdmin           Role = "admin"
	RoleDeliveryPartner Role = "delivery_partner"
	RoleCustomer        Role = "customer"
	RoleUser            Role = "user"
)

// AllRoles lists every valid role in privilege order, most privileged
// first. Session scans and routing checks iterate in this order.
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleDeliveryPartner,
	RoleCustomer,
	RoleUser,
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleDeliveryPartner, RoleCustomer, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// IsAdmin reports whether the role carries admin-panel access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
