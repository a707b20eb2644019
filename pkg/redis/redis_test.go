package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromRaw(rdb, zap.NewNop()), mr
}

func TestCheckRateLimit_SteadyClientUnderLimit(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	// 每 6 秒一次，10 秒窗口内最多 2 次，始终低于上限 3
	for i := 0; i < 10; i++ {
		ok, err := c.CheckRateLimit(ctx, "u1:/draw", 3, 10*time.Second)
		require.NoError(t, err)
		require.True(t, ok, "第 %d 次请求不应被限流", i+1)
		mr.FastForward(6 * time.Second)
	}
}

func TestCheckRateLimit_BurstDeniedThenWindowResets(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := c.CheckRateLimit(ctx, "u1:/import", 3, 10*time.Second)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := c.CheckRateLimit(ctx, "u1:/import", 3, 10*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	// 超限请求不顺延窗口
	require.Equal(t, 10*time.Second, mr.TTL(rateLimitPrefix+"u1:/import"))

	mr.FastForward(10 * time.Second)
	ok, err = c.CheckRateLimit(ctx, "u1:/import", 3, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckRateLimit_KeysIndependent(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.CheckRateLimit(ctx, "u1:/draw", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.CheckRateLimit(ctx, "u2:/draw", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTryLockUnlock(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.TryLock(ctx, "drawing:d1", "tok-a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.TryLock(ctx, "drawing:d1", "tok-b", time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, c.Unlock(ctx, "drawing:d1", "tok-b"), ErrLockNotHeld)
	require.NoError(t, c.Unlock(ctx, "drawing:d1", "tok-a"))

	ok, err = c.TryLock(ctx, "drawing:d1", "tok-b", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}
