package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "fxcockpit:snapshot:USDJPY", Key("fxcockpit", "snapshot", "USDJPY"))
	assert.Equal(t, "snapshot", Key("", "snapshot"))
}

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache(WithMemoryPrefix("fxc"))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "p", point{Symbol: "USDJPY", Price: 150.12}, time.Minute))
	got, err := GetTyped[point](ctx, mc, "p")
	require.NoError(t, err)
	assert.Equal(t, point{Symbol: "USDJPY", Price: 150.12}, got)

	ok, err := mc.Exists(ctx, "p")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "p"))
	_, err = GetTyped[point](ctx, mc, "p")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_ExpiryAndLocks(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)

	ok, err := mc.TryLock(ctx, "job:stats", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "job:stats", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "job:stats"))
	ok, _ = mc.TryLock(ctx, "job:stats", time.Minute)
	assert.True(t, ok)
}

func TestMemoryCache_UnlockLeavesLockTakenAfterExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	ok, err := mc.TryLock(ctx, "job:stats", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The holder overruns its ttl and another writer takes the key.
	now = now.Add(2 * time.Minute)
	require.NoError(t, mc.Set(ctx, "job:stats", "other-owner", time.Minute))

	assert.ErrorIs(t, mc.Unlock(ctx, "job:stats"), ErrLockNotHeld)
	exists, err := mc.Exists(ctx, "job:stats")
	require.NoError(t, err)
	assert.True(t, exists)

	// No token held: nothing to release.
	require.NoError(t, mc.Unlock(ctx, "job:stats"))
	require.NoError(t, mc.Unlock(ctx, "job:other"))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &s))
	assert.Equal(t, "1", s)
}

func TestRedisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "fxcockpit")
	ctx := context.Background()

	mock.ExpectSet("fxcockpit:p", []byte(`{"symbol":"USDJPY","price":150.5}`), time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "p", point{Symbol: "USDJPY", Price: 150.5}, time.Minute))

	mock.ExpectGet("fxcockpit:p").SetVal(`{"symbol":"USDJPY","price":150.5}`)
	got, err := GetTyped[point](ctx, rc, "p")
	require.NoError(t, err)
	assert.Equal(t, 150.5, got.Price)

	mock.ExpectGet("fxcockpit:missing").RedisNil()
	var s string
	assert.ErrorIs(t, rc.Get(ctx, "missing", &s), ErrCacheMiss)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_LockOwnership(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "fxcockpit")
	tokens := []string{"tok-1", "tok-2", "tok-3"}
	rc.newToken = func() string {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok
	}
	ctx := context.Background()

	mock.ExpectSetNX("fxcockpit:job:alerts", "tok-1", 30*time.Second).SetVal(true)
	ok, err := rc.TryLock(ctx, "job:alerts", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectEvalSha(unlockScript.Hash(), []string{"fxcockpit:job:alerts"}, "tok-1").SetVal(int64(1))
	require.NoError(t, rc.Unlock(ctx, "job:alerts"))

	// Lock held elsewhere: TryLock fails and Unlock sends nothing.
	mock.ExpectSetNX("fxcockpit:job:alerts", "tok-2", 30*time.Second).SetVal(false)
	ok, err = rc.TryLock(ctx, "job:alerts", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, rc.Unlock(ctx, "job:alerts"))

	// Our lock expired and another owner now holds the key.
	mock.ExpectSetNX("fxcockpit:job:alerts", "tok-3", 30*time.Second).SetVal(true)
	ok, err = rc.TryLock(ctx, "job:alerts", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	mock.ExpectEvalSha(unlockScript.Hash(), []string{"fxcockpit:job:alerts"}, "tok-3").SetVal(int64(0))
	assert.ErrorIs(t, rc.Unlock(ctx, "job:alerts"), ErrLockNotHeld)

	require.NoError(t, mock.ExpectationsWereMet())
}
