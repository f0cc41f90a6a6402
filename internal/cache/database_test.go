package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/database/testutil"
)

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "feed:1:user", []byte(`[1]`), time.Minute))

	value, found, err := store.Get(ctx, "feed:1:user")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[1]`, string(value))

	require.NoError(t, store.Set(ctx, "feed:1:user", []byte(`[2]`), time.Minute))
	value, _, err = store.Get(ctx, "feed:1:user")
	require.NoError(t, err)
	require.Equal(t, `[2]`, string(value))

	require.NoError(t, store.Delete(ctx, "feed:1:user"))
	_, found, err = store.Get(ctx, "feed:1:user")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreExpiresEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, found, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate:1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "rate:1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))

	removed, err := store.PurgeExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, found, err := store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, found)
}
