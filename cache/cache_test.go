package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/surge/cache"
	"github.com/ceyewan/surge/testkit"
)

type shop struct {
	ID   int64  `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func TestGetOrLoadRoundTrip(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil, cache.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	var loads atomic.Int32
	load := func(ctx context.Context) (any, error) {
		loads.Add(1)
		return &shop{ID: 1, Name: "茶百道"}, nil
	}

	var got shop
	found, err := client.GetOrLoad(ctx, "shop:1", &got, time.Minute, load)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, shop{ID: 1, Name: "茶百道"}, got)
	assert.Equal(t, int32(1), loads.Load())

	// 第二次读取命中缓存，不再回源
	var got2 shop
	found, err = client.GetOrLoad(ctx, "shop:1", &got2, time.Minute, load)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, got, got2)
	assert.Equal(t, int32(1), loads.Load(), "缓存命中不应回源")
}

// 源中不存在的 key 写入空值标记，后续读取短路回源
func TestGetOrLoadNullCache(t *testing.T) {
	mr, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	var loads atomic.Int32
	loadMissing := func(ctx context.Context) (any, error) {
		loads.Add(1)
		return nil, nil
	}

	var got shop
	found, err := client.GetOrLoad(ctx, "shop:404", &got, time.Minute, loadMissing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int32(1), loads.Load())

	for i := 0; i < 5; i++ {
		found, err = client.GetOrLoad(ctx, "shop:404", &got, time.Minute, loadMissing)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, int32(1), loads.Load(), "空值标记应拦截重复回源")

	// 空值标记过期后恢复回源
	mr.FastForward(3 * time.Minute)
	found, err = client.GetOrLoad(ctx, "shop:404", &got, time.Minute, loadMissing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int32(2), loads.Load())
}

func TestGetOrLoadTypedNilLoader(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil)
	require.NoError(t, err)
	defer client.Close()

	// 带类型的 nil 指针同样视为"源中不存在"
	var got shop
	found, err := client.GetOrLoad(context.Background(), "shop:nil", &got, time.Minute,
		func(ctx context.Context) (any, error) {
			var s *shop
			return s, nil
		})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetStaleUnwarmedKey(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil)
	require.NoError(t, err)
	defer client.Close()

	var got shop
	found, err := client.GetStale(context.Background(), "shop:cold", &got, time.Minute,
		func(ctx context.Context) (any, error) {
			t.Fatal("未预热的 key 不应回源")
			return nil, nil
		})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetStaleFresh(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.SetWithLogicalExpire(ctx, "shop:1", &shop{ID: 1, Name: "茶百道"}, time.Minute))

	var got shop
	found, err := client.GetStale(ctx, "shop:1", &got, time.Minute,
		func(ctx context.Context) (any, error) {
			t.Error("数据未过期不应回源")
			return nil, nil
		})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, shop{ID: 1, Name: "茶百道"}, got)
}

// 逻辑过期后并发读取: 全部立即返回旧值，恰好一次重建
func TestGetStaleSingleRebuild(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil, cache.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	old := &shop{ID: 1, Name: "旧门店"}
	// 写入即过期
	require.NoError(t, client.SetWithLogicalExpire(ctx, "shop:1", old, -time.Second))

	var loads atomic.Int32
	load := func(ctx context.Context) (any, error) {
		loads.Add(1)
		time.Sleep(50 * time.Millisecond) // 模拟慢回源
		return &shop{ID: 1, Name: "新门店"}, nil
	}

	const readers = 20
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got shop
			found, gerr := client.GetStale(ctx, "shop:1", &got, time.Minute, load)
			assert.NoError(t, gerr)
			assert.True(t, found, "过期数据仍应返回旧值")
			assert.Equal(t, int64(1), got.ID)
		}()
	}
	wg.Wait()

	// 等待异步重建落盘
	require.Eventually(t, func() bool {
		var got shop
		found, gerr := client.GetStale(ctx, "shop:1", &got, time.Minute, load)
		return gerr == nil && found && got.Name == "新门店"
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, int32(1), loads.Load(), "并发过期读取应恰好触发一次重建")
}

// 源中数据被删除后，重建应移除缓存而不是续写旧值
func TestGetStaleRebuildDeleted(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.SetWithLogicalExpire(ctx, "shop:9", &shop{ID: 9}, -time.Second))

	var got shop
	found, err := client.GetStale(ctx, "shop:9", &got, time.Minute,
		func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.True(t, found, "触发重建的调用方仍返回旧值")

	require.Eventually(t, func() bool {
		var s shop
		found, gerr := client.GetStale(ctx, "shop:9", &s, time.Minute,
			func(ctx context.Context) (any, error) { return nil, nil })
		return gerr == nil && !found
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMsgpackSerializer(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, &cache.Config{Serializer: "msgpack"})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "shop:mp", &shop{ID: 7, Name: "书亦烧仙草"}, time.Minute))

	var got shop
	found, err := client.GetOrLoad(ctx, "shop:mp", &got, time.Minute,
		func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, shop{ID: 7, Name: "书亦烧仙草"}, got)
}

func TestDelete(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	client, err := cache.New(conn, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "shop:del", &shop{ID: 3}, time.Minute))
	require.NoError(t, client.Delete(ctx, "shop:del"))

	var loads atomic.Int32
	var got shop
	found, err := client.GetOrLoad(ctx, "shop:del", &got, time.Minute,
		func(ctx context.Context) (any, error) {
			loads.Add(1)
			return nil, nil
		})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int32(1), loads.Load(), "删除后应重新回源")
}
