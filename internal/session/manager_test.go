package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esygrab/internal/models"
)

func testUser(id string, role models.Role) models.User {
	return models.User{
		ID:         id,
		Email:      id + "@example.com",
		Role:       role,
		IsVerified: true,
	}
}

// fakeClock lets tests move time forward explicitly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestManager() (*Manager, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewManagerWithClock(store, clock.Now), store, clock
}

func TestStoreSessionRoleExclusivity(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)
	m.StoreSession(ctx, testUser("u2", models.RoleDeliveryPartner), models.RoleDeliveryPartner)

	assert.Nil(t, m.GetSession(ctx, models.RoleCustomer))

	rec := m.GetSession(ctx, models.RoleDeliveryPartner)
	require.NotNil(t, rec)
	assert.Equal(t, "u2", rec.User.ID)
	assert.Equal(t, models.RoleDeliveryPartner, rec.Role)
}

func TestGetSessionLazyExpiry(t *testing.T) {
	m, store, clock := newTestManager()
	ctx := context.Background()

	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)
	clock.Advance(RoleSessionTTL + time.Millisecond)

	assert.Nil(t, m.GetSession(ctx, models.RoleCustomer))

	// The expired record must be gone from the store, not just hidden.
	data, err := store.Get(ctx, storageKey(models.RoleCustomer))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGetSessionInactivityCutoff(t *testing.T) {
	m, store, clock := newTestManager()
	ctx := context.Background()

	// A record whose absolute expiry is far out but whose last activity
	// is stale is still invalid.
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	rec := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, rec)
	// Push the stored expiry out so only the inactivity cutoff can trip.
	rec.ExpiresAt = clock.Now().Add(72 * time.Hour)
	data, err := marshalRecord(rec)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, storageKey(models.RoleCustomer), data, 72*time.Hour))

	clock.Advance(InactivityCutoff + time.Minute)
	assert.Nil(t, m.GetSession(ctx, models.RoleCustomer))
}

func TestGetSessionActivityIsMonotonic(t *testing.T) {
	m, _, clock := newTestManager()
	ctx := context.Background()

	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	first := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, first)

	second := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, second)
	assert.False(t, second.LastActivity.Before(first.LastActivity))

	clock.Advance(time.Minute)
	third := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, third)
	assert.True(t, third.LastActivity.After(first.LastActivity))
}

func TestGetSessionCorruptDataSelfHeals(t *testing.T) {
	m, store, _ := newTestManager()
	ctx := context.Background()

	key := storageKey(models.RoleCustomer)
	require.NoError(t, store.Put(ctx, key, []byte("{definitely not json"), time.Hour))

	assert.Nil(t, m.GetSession(ctx, models.RoleCustomer))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, data, "corrupt key must be deleted, not left behind")
}

func TestValidateRoleSessionMismatch(t *testing.T) {
	m, store, _ := newTestManager()
	ctx := context.Background()

	// A record under the customer key whose role field claims admin.
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)
	rec := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, rec)
	rec.Role = models.RoleAdmin
	data, err := marshalRecord(rec)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, storageKey(models.RoleCustomer), data, time.Hour))

	assert.Nil(t, m.ValidateRoleSession(ctx, models.RoleCustomer))
}

func TestClearAllSessionsIdempotent(t *testing.T) {
	m, store, _ := newTestManager()
	ctx := context.Background()

	m.StoreSession(ctx, testUser("u1", models.RoleAdmin), models.RoleAdmin)
	require.NoError(t, store.Put(ctx, GuestCartKey, []byte(`["item"]`), time.Hour))
	require.NoError(t, store.Put(ctx, LegacySessionKey, []byte(`{}`), time.Hour))

	m.ClearAllSessions(ctx)
	assert.Equal(t, 0, store.Len())

	// Second clear must succeed and change nothing.
	m.ClearAllSessions(ctx)
	assert.Equal(t, 0, store.Len())
}

func TestGetCurrentSessionPriorityOrder(t *testing.T) {
	m, store, _ := newTestManager()
	ctx := context.Background()

	// Populate two role keys directly, bypassing the exclusivity clear,
	// to exercise the defensive scan.
	m.StoreSession(ctx, testUser("cust", models.RoleCustomer), models.RoleCustomer)
	admin := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, admin)
	adminRec := *admin
	adminRec.User = testUser("adm", models.RoleAdmin)
	adminRec.Role = models.RoleAdmin
	data, err := marshalRecord(&adminRec)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, storageKey(models.RoleAdmin), data, time.Hour))

	rec := m.GetCurrentSession(ctx)
	require.NotNil(t, rec)
	assert.Equal(t, models.RoleAdmin, rec.Role, "admin outranks customer in the scan")
}

func TestHasValidSession(t *testing.T) {
	m, _, clock := newTestManager()
	ctx := context.Background()

	assert.False(t, m.HasValidSession(ctx, models.RoleUser))

	m.StoreSession(ctx, testUser("u1", models.RoleUser), models.RoleUser)
	assert.True(t, m.HasValidSession(ctx, models.RoleUser))

	clock.Advance(RoleSessionTTL + time.Second)
	assert.False(t, m.HasValidSession(ctx, models.RoleUser))
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, AdminDashboardPath, DashboardPath(models.RoleSuperAdmin))
	assert.Equal(t, AdminDashboardPath, DashboardPath(models.RoleAdmin))
	assert.Equal(t, DeliveryDashboardPath, DashboardPath(models.RoleDeliveryPartner))
	assert.Equal(t, StorefrontPath, DashboardPath(models.RoleCustomer))
	assert.Equal(t, StorefrontPath, DashboardPath(models.RoleUser))
}

func TestEnforceRoleRouting(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	// No session: no-op.
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/admin/dashboard", nil)
	assert.False(t, m.EnforceRoleRouting(w, r))

	// Delivery partner on the storefront root gets sent home.
	m.StoreSession(ctx, testUser("dp", models.RoleDeliveryPartner), models.RoleDeliveryPartner)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/", nil)
	assert.True(t, m.EnforceRoleRouting(w, r))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, DeliveryDashboardPath, w.Header().Get("Location"))

	// Matching route: no redirect.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/delivery-partner/dashboard", nil)
	assert.False(t, m.EnforceRoleRouting(w, r))

	// Delivery partner poking at the admin area gets bounced too.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/admin/dashboard", nil)
	assert.True(t, m.EnforceRoleRouting(w, r))
	assert.Equal(t, DeliveryDashboardPath, w.Header().Get("Location"))
}

func TestEnforceRouteForRole(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/admin/dashboard", nil)
	assert.True(t, EnforceRouteForRole(w, r, models.RoleCustomer))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, StorefrontPath, w.Header().Get("Location"))

	w = httptest.NewRecorder()
	assert.False(t, EnforceRouteForRole(w, r, models.RoleAdmin))
}

func TestStoreSessionSurvivesStoreFailure(t *testing.T) {
	m := NewManager(failingStore{})
	ctx := context.Background()

	// Storage failures degrade to "unauthenticated", never panic.
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)
	assert.Nil(t, m.GetSession(ctx, models.RoleCustomer))
	m.ClearAllSessions(ctx)
}
