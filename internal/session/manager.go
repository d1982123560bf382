package session

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"esygrab/internal/models"
)

const (
	// RoleSessionTTL is the absolute lifetime of a role session. A single
	// 24h policy is used for both the absolute expiry and the inactivity
	// cutoff below; the old 7-day general-session lifetime is retired.
	RoleSessionTTL = 24 * time.Hour

	// InactivityCutoff invalidates a session whose last activity is older
	// than this, even if its absolute expiry has not elapsed. The activity
	// heartbeat keeps this from tripping during genuine use.
	InactivityCutoff = 24 * time.Hour
)

// Dashboard paths per role tier. Redirects here are full 307 redirects,
// not in-app transitions, so role-scoped UI state reloads cleanly.
const (
	AdminDashboardPath    = "/admin/dashboard"
	DeliveryDashboardPath = "/delivery-partner/dashboard"
	StorefrontPath        = "/"
)

// Record is a role-scoped session: cached proof of authentication plus
// role, expiry and last-activity metadata. The identity provider's own
// session stays authoritative; this record is an advisory cache.
type Record struct {
	User         models.User `json:"user"`
	Role         models.Role `json:"role"`
	ExpiresAt    time.Time   `json:"expires_at"`
	LastActivity time.Time   `json:"last_activity"`
	Token        string      `json:"token,omitempty"`
}

// Manager governs role-partitioned session persistence: one record per
// role key, role exclusivity on write, lazy expiry on read. It is an
// explicitly constructed object so tests can inject an in-memory store
// and a fake clock.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a session manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewManagerWithClock is NewManager with an injected clock.
func NewManagerWithClock(store Store, now func() time.Time) *Manager {
	return &Manager{store: store, now: now}
}

// StoreSession persists a session for the given role. Every role's
// existing session is cleared first: only one role is active at a time,
// even though storage keeps per-role keys. The clear-then-write pair is
// not atomic across processes; concurrent writers race last-writer-wins.
// Storage failures are logged and the write abandoned, never surfaced as
// an error - losing the cache only costs a re-authentication.
func (m *Manager) StoreSession(ctx context.Context, user models.User, role models.Role) {
	m.StoreSessionWithToken(ctx, user, role, "")
}

// StoreSessionWithToken is StoreSession plus an opaque credential
// reference kept alongside the record, used for provider sign-out.
func (m *Manager) StoreSessionWithToken(ctx context.Context, user models.User, role models.Role, token string) {
	for _, r := range models.AllRoles {
		if err := m.store.Delete(ctx, storageKey(r)); err != nil {
			log.Printf("Failed to clear session for role %s: %v", r, err)
		}
	}

	now := m.now()
	rec := Record{
		User:         user,
		Role:         role,
		ExpiresAt:    now.Add(RoleSessionTTL),
		LastActivity: now,
		Token:        token,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("Failed to marshal session for role %s: %v", role, err)
		return
	}

	if err := m.store.Put(ctx, storageKey(role), data, RoleSessionTTL); err != nil {
		log.Printf("Failed to store session for role %s: %v", role, err)
	}
}

// GetSession returns the session for a role, or nil when there is none.
// An expired record is deleted before returning nil (lazy expiry); an
// unparseable record is deleted too (self-heal). A valid read refreshes
// LastActivity and re-persists the record.
func (m *Manager) GetSession(ctx context.Context, role models.Role) *Record {
	key := storageKey(role)

	data, err := m.store.Get(ctx, key)
	if err != nil {
		log.Printf("Failed to read session for role %s: %v", role, err)
		return nil
	}
	if data == nil {
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("Corrupt session record for role %s, removing: %v", role, err)
		if err := m.store.Delete(ctx, key); err != nil {
			log.Printf("Failed to remove corrupt session for role %s: %v", role, err)
		}
		return nil
	}

	now := m.now()
	if now.After(rec.ExpiresAt) || now.Sub(rec.LastActivity) > InactivityCutoff {
		if err := m.store.Delete(ctx, key); err != nil {
			log.Printf("Failed to remove expired session for role %s: %v", role, err)
		}
		return nil
	}

	// LastActivity never moves backwards while the session is valid.
	if now.After(rec.LastActivity) {
		rec.LastActivity = now
		if data, err := json.Marshal(rec); err == nil {
			if err := m.store.Put(ctx, key, data, rec.ExpiresAt.Sub(now)); err != nil {
				log.Printf("Failed to refresh session activity for role %s: %v", role, err)
			}
		}
	}

	return &rec
}

// HasValidSession reports whether a valid session exists for the role.
func (m *Manager) HasValidSession(ctx context.Context, role models.Role) bool {
	return m.GetSession(ctx, role) != nil
}

// GetCurrentSession scans all role keys in privilege order and returns
// the first valid session, or nil. In normal operation at most one key
// is populated because StoreSession clears the others; the scan exists
// defensively, and its order (super_admin, admin, delivery_partner,
// customer, user) is deliberate and covered by tests.
func (m *Manager) GetCurrentSession(ctx context.Context) *Record {
	for _, role := range models.AllRoles {
		if rec := m.GetSession(ctx, role); rec != nil {
			return rec
		}
	}
	return nil
}

// ValidateRoleSession returns the session only when one exists for the
// role and its stored role field matches. A mismatch (storage tampering
// or a bug) is treated as no session, not an error.
func (m *Manager) ValidateRoleSession(ctx context.Context, expected models.Role) *Record {
	rec := m.GetSession(ctx, expected)
	if rec == nil {
		return nil
	}
	if rec.Role != expected {
		log.Printf("Session role mismatch: key %s holds role %s", expected, rec.Role)
		return nil
	}
	return rec
}

// ClearAllSessions removes every role-keyed record plus the legacy keys
// left behind by earlier releases. Idempotent.
func (m *Manager) ClearAllSessions(ctx context.Context) {
	for _, role := range models.AllRoles {
		if err := m.store.Delete(ctx, storageKey(role)); err != nil {
			log.Printf("Failed to clear session for role %s: %v", role, err)
		}
	}
	for _, key := range legacyKeys {
		if err := m.store.Delete(ctx, key); err != nil {
			log.Printf("Failed to clear legacy key %s: %v", key, err)
		}
	}
}

// DashboardPath maps a role to its dashboard. The switch is total over
// the role constants.
func DashboardPath(role models.Role) string {
	switch role {
	case models.RoleSuperAdmin, models.RoleAdmin:
		return AdminDashboardPath
	case models.RoleDeliveryPartner:
		return DeliveryDashboardPath
	case models.RoleCustomer, models.RoleUser:
		return StorefrontPath
	}
	return StorefrontPath
}

// RedirectToRoleDashboard issues a full redirect to the role's dashboard.
func RedirectToRoleDashboard(w http.ResponseWriter, r *http.Request, role models.Role) {
	http.Redirect(w, r, DashboardPath(role), http.StatusTemporaryRedirect)
}

// routeMatchesRole reports whether the request path belongs to the given
// role's area of the site.
func routeMatchesRole(path string, role models.Role) bool {
	switch {
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return role.IsAdmin()
	case path == "/delivery-partner" || strings.HasPrefix(path, "/delivery-partner/"):
		return role == models.RoleDeliveryPartner
	default:
		return !role.IsAdmin() && role != models.RoleDeliveryPartner
	}
}

// EnforceRouteForRole redirects to the role's dashboard when the request
// path does not belong to that role's area. Returns true when a redirect
// was written. The caller decides whose role applies; request
// authentication happens before this, never through it.
func EnforceRouteForRole(w http.ResponseWriter, r *http.Request, role models.Role) bool {
	if routeMatchesRole(r.URL.Path, role) {
		return false
	}
	log.Printf("Role routing mismatch: role %s on path %s, redirecting", role, r.URL.Path)
	RedirectToRoleDashboard(w, r, role)
	return true
}

// EnforceRoleRouting is EnforceRouteForRole against the store's current
// session, found by the defensive scan. It is a no-op without a session.
func (m *Manager) EnforceRoleRouting(w http.ResponseWriter, r *http.Request) bool {
	rec := m.GetCurrentSession(r.Context())
	if rec == nil {
		return false
	}
	return EnforceRouteForRole(w, r, rec.Role)
}
