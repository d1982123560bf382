package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esygrab/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":1}`), time.Hour))

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)

	// Overwrite replaces, not appends.
	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":2}`), time.Hour))
	data, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), data)

	require.NoError(t, store.Delete(ctx, "k"))
	data, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLiteStoreDeleteMissingKey(t *testing.T) {
	store := newTestSQLiteStore(t)
	assert.NoError(t, store.Delete(context.Background(), "absent"))
}

func TestSQLiteStoreCleanup(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "stale", []byte("v"), -time.Minute))
	require.NoError(t, store.Put(ctx, "fresh", []byte("v"), time.Hour))

	require.NoError(t, store.Cleanup(ctx))

	data, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestManagerOverSQLiteStore(t *testing.T) {
	store := newTestSQLiteStore(t)
	m := NewManager(store)
	ctx := context.Background()

	m.StoreSession(ctx, testUser("u1", models.RoleDeliveryPartner), models.RoleDeliveryPartner)

	rec := m.ValidateRoleSession(ctx, models.RoleDeliveryPartner)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.User.ID)
}
