package session

import "esygrab/internal/models"

// Legacy storage keys from earlier releases. ClearAllSessions removes
// these so stale records left behind by old clients get cleaned up.
const (
	LegacySessionKey  = "esygrab_session"
	LegacyAuthUserKey = "esygrab_auth_user"
	LegacyUserKey     = "user"
	LegacyActivityKey = "lastActivity"
	GuestCartKey      = "guest_cart"
	AuthRedirectKey   = "auth_redirect_url"
	DeviceIDKey       = "esygrab_device_id"
)

var legacyKeys = []string{
	LegacySessionKey,
	LegacyAuthUserKey,
	LegacyUserKey,
	LegacyActivityKey,
	GuestCartKey,
	AuthRedirectKey,
	DeviceIDKey,
}

// storageKey maps a role to its storage key. The switch is total over the
// role constants, so every valid role is statically guaranteed a key.
func storageKey(role models.Role) string {
	switch role {
	case models.RoleSuperAdmin:
		return "esygrab_session_super_admin"
	case models.RoleAdmin:
		return "esygrab_session_admin"
	case models.RoleDeliveryPartner:
		return "esygrab_session_delivery_partner"
	case models.RoleCustomer:
		return "esygrab_session_customer"
	case models.RoleUser:
		return "esygrab_session_user"
	}
	// Unreachable for roles produced by models.ParseRole.
	return "esygrab_session_" + string(role)
}
