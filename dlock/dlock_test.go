package dlock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/testkit"
)

func TestTryLockMutualExclusion(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	ctx := context.Background()

	lockerA, err := dlock.New(conn, nil, dlock.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	defer lockerA.Close()

	lockerB, err := dlock.New(conn, nil)
	require.NoError(t, err)
	defer lockerB.Close()

	key := "order:" + testkit.NewID()

	ok, err := lockerA.TryLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "首次加锁应成功")

	ok, err = lockerB.TryLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "锁被占用时应立即返回 false")

	require.NoError(t, lockerA.Unlock(ctx, key))

	ok, err = lockerB.TryLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "释放后应可再次获取")
	require.NoError(t, lockerB.Unlock(ctx, key))
}

func TestTryLockReentrantSameInstance(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	ctx := context.Background()

	locker, err := dlock.New(conn, nil)
	require.NoError(t, err)
	defer locker.Close()

	key := "task:" + testkit.NewID()

	ok, err := locker.TryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = locker.TryLock(ctx, key)
	assert.ErrorIs(t, err, dlock.ErrLockHeld)
}

func TestUnlockNotHeld(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)

	locker, err := dlock.New(conn, nil)
	require.NoError(t, err)
	defer locker.Close()

	err = locker.Unlock(context.Background(), "never-acquired")
	assert.ErrorIs(t, err, dlock.ErrLockNotHeld)
}

// 过期后锁被他人抢占，原持有者释放必须失败且不影响新持有者
func TestUnlockOwnershipLost(t *testing.T) {
	mr, conn := testkit.NewMiniRedis(t)
	ctx := context.Background()

	lockerA, err := dlock.New(conn, nil)
	require.NoError(t, err)
	defer lockerA.Close()

	lockerB, err := dlock.New(conn, nil)
	require.NoError(t, err)
	defer lockerB.Close()

	key := "order:" + testkit.NewID()

	ok, err := lockerA.TryLock(ctx, key, dlock.WithTTL(time.Second))
	require.NoError(t, err)
	require.True(t, ok)

	// 模拟租约过期
	mr.FastForward(2 * time.Second)

	ok, err = lockerB.TryLock(ctx, key, dlock.WithTTL(10*time.Second))
	require.NoError(t, err)
	require.True(t, ok, "租约过期后新持有者应能获取")

	err = lockerA.Unlock(ctx, key)
	assert.ErrorIs(t, err, dlock.ErrOwnershipLost)

	// 新持有者不受影响
	assert.True(t, mr.Exists("lock:"+key), "误删保护失效：新持有者的锁被删除")
	require.NoError(t, lockerB.Unlock(ctx, key))
}

func TestAutoRenewKeepsLockAlive(t *testing.T) {
	mr, conn := testkit.NewMiniRedis(t)
	ctx := context.Background()

	locker, err := dlock.New(conn, nil)
	require.NoError(t, err)
	defer locker.Close()

	key := "renew:" + testkit.NewID()

	ok, err := locker.TryLock(ctx, key,
		dlock.WithTTL(300*time.Millisecond), dlock.WithAutoRenew())
	require.NoError(t, err)
	require.True(t, ok)

	// 消耗大部分租约，等待看门狗续约，再次消耗；
	// 累计超过单次 TTL，只有续约生效锁才能存活
	mr.FastForward(250 * time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	mr.FastForward(250 * time.Millisecond)

	assert.True(t, mr.Exists("lock:"+key), "看门狗续约应保持锁存活")

	require.NoError(t, locker.Unlock(ctx, key))
	assert.False(t, mr.Exists("lock:"+key))
}

// 多个实例并发抢占同一把锁，恰好一个成功
func TestTryLockConcurrentSingleWinner(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	ctx := context.Background()

	const workers = 10
	key := "contend:" + testkit.NewID()

	var wg sync.WaitGroup
	var winners atomic.Int32

	for i := 0; i < workers; i++ {
		locker, err := dlock.New(conn, nil)
		require.NoError(t, err)
		defer locker.Close()

		wg.Add(1)
		go func(l dlock.Locker) {
			defer wg.Done()
			ok, err := l.TryLock(ctx, key)
			if err == nil && ok {
				winners.Add(1)
			}
		}(locker)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "并发抢占应恰好一个成功")
}

func TestCloseReleasesHeldLocks(t *testing.T) {
	mr, conn := testkit.NewMiniRedis(t)
	ctx := context.Background()

	locker, err := dlock.New(conn, nil)
	require.NoError(t, err)

	ok, err := locker.TryLock(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = locker.TryLock(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Close())
	assert.False(t, mr.Exists("lock:a"))
	assert.False(t, mr.Exists("lock:b"))

	_, err = locker.TryLock(ctx, "c")
	assert.ErrorIs(t, err, dlock.ErrClosed)
}
