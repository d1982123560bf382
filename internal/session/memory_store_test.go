package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("value"), time.Hour))

	first, err := store.Get(ctx, "k")
	require.NoError(t, err)
	first[0] = 'X'

	second, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), second, "mutating a returned slice must not touch the stored record")
}

func TestMemoryStoreExpiresOnRead(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 0, store.Len())
}
