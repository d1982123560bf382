package main

import (
	"database/sql"
	"log"
	"time"

	"esygrab/internal/models"
)

// initDatabase creates the application's local tables. Role sessions get
// their own table via session.NewSQLiteStore; everything here is the
// supporting data the storefront keeps next to them.
func (app *App) initDatabase() error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			phone TEXT,
			is_verified BOOLEAN DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS role_grants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			granted_by TEXT NOT NULL,
			is_active BOOLEAN DEFAULT TRUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			user_id TEXT,
			last_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := app.DB.Exec(query)
	return err
}

// UpsertUser records an identity after a successful sign-in.
func (app *App) UpsertUser(user *models.User) error {
	_, err := app.DB.Exec(`
		INSERT INTO users (id, email, phone, is_verified, last_login_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			phone = excluded.phone,
			is_verified = excluded.is_verified,
			last_login_at = excluded.last_login_at
	`, user.ID, user.Email, user.Phone, user.IsVerified, time.Now().UTC())
	if err != nil {
		return WrapDatabaseError(ErrTypeConnection, "failed to upsert user", err)
	}
	return nil
}

// GetRoleGrant returns the active granted role for an email, if any.
func (app *App) GetRoleGrant(email string) (models.Role, bool, error) {
	var raw string
	err := app.DB.QueryRow(`
		SELECT role FROM role_grants
		WHERE user_email = ? AND is_active = TRUE
	`, email).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, WrapDatabaseError(ErrTypeConnection, "failed to read role grant", err)
	}

	role, err := models.ParseRole(raw)
	if err != nil {
		// A grant row holding an unknown role is treated as absent.
		log.Printf("Ignoring role grant with unknown role %q for %s", raw, email)
		return "", false, nil
	}
	return role, true, nil
}

// ResolveRole determines the effective role for a signed-in identity: an
// active local grant beats the provider's token claim, and unverified
// identities never resolve above the base user role.
func (app *App) ResolveRole(user *models.User) models.Role {
	if granted, ok, err := app.GetRoleGrant(user.Email); err == nil && ok {
		return granted
	} else if err != nil {
		log.Printf("Failed to resolve role grant for %s: %v", user.Email, err)
	}

	if !user.IsVerified {
		return models.RoleUser
	}
	if user.Role.Valid() && user.Role != models.RoleUser {
		return user.Role
	}
	return models.RoleCustomer
}

// TouchDevice records that a device was seen, creating it on first sight.
func (app *App) TouchDevice(deviceID, userID string) {
	_, err := app.DB.Exec(`
		INSERT INTO devices (device_id, user_id, last_seen_at)
		VALUES (?, NULLIF(?, ''), ?)
		ON CONFLICT(device_id) DO UPDATE SET
			user_id = COALESCE(NULLIF(excluded.user_id, ''), devices.user_id),
			last_seen_at = excluded.last_seen_at
	`, deviceID, userID, time.Now().UTC())
	if err != nil {
		log.Printf("Failed to touch device %s: %v", deviceID, err)
	}
}
