package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esygrab/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewRedisStore(client), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Hour))

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	require.NoError(t, store.Delete(ctx, "k"))
	data, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisStoreMissingKey(t *testing.T) {
	store, _ := newTestRedisStore(t)

	data, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(time.Minute + time.Second)

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisStoreNonPositiveTTLDeletes(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, store.Put(ctx, "k", []byte("v2"), 0))

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestManagerOverRedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t)
	m := NewManager(store)
	ctx := context.Background()

	m.StoreSession(ctx, testUser("u1", models.RoleAdmin), models.RoleAdmin)

	rec := m.GetSession(ctx, models.RoleAdmin)
	require.NotNil(t, rec)
	assert.Equal(t, models.RoleAdmin, rec.Role)
	assert.Nil(t, m.GetSession(ctx, models.RoleCustomer))
}
