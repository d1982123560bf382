package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"esygrab/internal/models"
	"esygrab/internal/utils"
)

// RoleGrant is a locally granted role that overrides the identity
// provider's token claim at sign-in.
type RoleGrant struct {
	ID        int         `json:"id"`
	UserEmail string      `json:"user_email"`
	Role      models.Role `json:"role"`
	GrantedBy string      `json:"granted_by"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// grantableRole restricts what the admin API can hand out. super_admin
// is bootstrapped directly in the database, never over HTTP.
func grantableRole(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleDeliveryPartner
}

// ListRoleGrants returns all active role grants.
func (app *App) ListRoleGrants() ([]RoleGrant, error) {
	rows, err := app.DB.Query(`
		SELECT id, user_email, role, granted_by, is_active, created_at, updated_at
		FROM role_grants
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, WrapDatabaseError(ErrTypeConnection, "failed to query role grants", err)
	}
	defer rows.Close()

	var grants []RoleGrant
	for rows.Next() {
		var g RoleGrant
		var raw string
		if err := rows.Scan(&g.ID, &g.UserEmail, &raw, &g.GrantedBy, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, WrapDatabaseError(ErrTypeConnection, "failed to scan role grant", err)
		}
		role, err := models.ParseRole(raw)
		if err != nil {
			log.Printf("Skipping role grant %d with unknown role %q", g.ID, raw)
			continue
		}
		g.Role = role
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// GrantRole records or replaces the active grant for an email.
func (app *App) GrantRole(grantedBy, userEmail string, role models.Role) error {
	if !grantableRole(role) {
		return fmt.Errorf("role %s cannot be granted", role)
	}

	return app.WithTransaction(func(tx *sql.Tx) error {
		// One active grant per email; a new grant replaces the old one.
		if _, err := tx.Exec(`
			DELETE FROM role_grants WHERE user_email = ?
		`, userEmail); err != nil {
			return WrapDatabaseError(ErrTypeConnection, "failed to clear previous grant", err)
		}

		if _, err := tx.Exec(`
			INSERT INTO role_grants (user_email, role, granted_by, is_active)
			VALUES (?, ?, ?, TRUE)
		`, userEmail, string(role), grantedBy); err != nil {
			return WrapDatabaseError(ErrTypeConstraint, "failed to insert role grant", err)
		}
		return nil
	})
}

// RevokeRole deactivates the grant for an email. Revoking a missing
// grant is not an error.
func (app *App) RevokeRole(userEmail string) error {
	_, err := app.DB.Exec(`
		UPDATE role_grants SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE user_email = ?
	`, userEmail)
	if err != nil {
		return WrapDatabaseError(ErrTypeConnection, "failed to revoke role grant", err)
	}
	return nil
}

// handleListRoleGrants returns active grants for the super-admin panel.
func (app *App) handleListRoleGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := app.ListRoleGrants()
	if err != nil {
		log.Printf("Failed to list role grants: %v", err)
		utils.DatabaseError(w)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, grants)
}

// GrantRoleRequest is the API request for granting a role
type GrantRoleRequest struct {
	UserEmail string `json:"user_email"`
	Role      string `json:"role"`
}

// handleGrantRole grants admin or delivery_partner to an email.
func (app *App) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	grantedBy, ok := utils.RequireAuthentication(w, r)
	if !ok {
		return
	}

	var req GrantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequestError(w, "Invalid request body")
		return
	}

	if !ValidateEmail(req.UserEmail) {
		utils.ValidationError(w, "Invalid email address")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil || !grantableRole(role) {
		utils.ValidationError(w, "Role must be admin or delivery_partner")
		return
	}

	if err := app.GrantRole(grantedBy, req.UserEmail, role); err != nil {
		log.Printf("Failed to grant role: %v", err)
		utils.InternalServerError(w, "Failed to grant role")
		return
	}

	utils.RespondWithSuccess(w, nil, "Role granted")
}

// handleRevokeRole deactivates a grant.
func (app *App) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserEmail string `json:"user_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequestError(w, "Invalid request body")
		return
	}

	if req.UserEmail == "" {
		utils.ValidationError(w, "user_email is required")
		return
	}

	if err := app.RevokeRole(req.UserEmail); err != nil {
		log.Printf("Failed to revoke role: %v", err)
		utils.InternalServerError(w, "Failed to revoke role")
		return
	}

	utils.RespondWithSuccess(w, nil, "Role revoked")
}
