package utils

import (
	"context"
	"net/http"

	"esygrab/internal/models"
)

// Context keys set by the middleware chain
type contextKey string

const (
	UserIDKey        contextKey = "user_id"
	UserEmailKey     contextKey = "user_email"
	UserRoleKey      contextKey = "user_role"
	CSRFTokenKey     contextKey = "csrf_token"
	AuthenticatedKey contextKey = "authenticated"
	DeviceIDKey      contextKey = "device_id"
)

// WithUser stores the authenticated identity on the request context.
func WithUser(ctx context.Context, userID, email string, role models.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return context.WithValue(ctx, AuthenticatedKey, true)
}

// GetUserID extracts the user ID from the request context
func GetUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetUserEmail extracts the user email from the request context
func GetUserEmail(r *http.Request) (string, bool) {
	userEmail, ok := r.Context().Value(UserEmailKey).(string)
	return userEmail, ok && userEmail != ""
}

// GetUserRole extracts the authenticated role from the request context
func GetUserRole(r *http.Request) (models.Role, bool) {
	role, ok := r.Context().Value(UserRoleKey).(models.Role)
	return role, ok && role.Valid()
}

// GetCSRFToken extracts the CSRF token from the request context
func GetCSRFToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(CSRFTokenKey).(string)
	return token, ok && token != ""
}

// IsAuthenticated checks if the request carries an authenticated session
func IsAuthenticated(r *http.Request) bool {
	authenticated, ok := r.Context().Value(AuthenticatedKey).(bool)
	return ok && authenticated
}

// GetDeviceID extracts the device identifier set by the device middleware
func GetDeviceID(r *http.Request) (string, bool) {
	deviceID, ok := r.Context().Value(DeviceIDKey).(string)
	return deviceID, ok && deviceID != ""
}
