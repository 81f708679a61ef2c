package idgen_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/surge/idgen"
	"github.com/ceyewan/surge/testkit"
)

func TestNextIDMonotonic(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	gen, err := idgen.New(conn, nil, idgen.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)

	ctx := context.Background()
	var prev int64
	for i := 0; i < 100; i++ {
		id, err := gen.NextID(ctx, "order")
		require.NoError(t, err)
		assert.Greater(t, id, prev, "顺序发放的 ID 应严格递增")
		prev = id
	}
}

func TestNextIDTimestampBits(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	gen, err := idgen.New(conn, nil)
	require.NoError(t, err)

	id, err := gen.NextID(context.Background(), "order")
	require.NoError(t, err)

	// 高位时间戳还原后应接近当前时间
	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	issuedAt := epoch.Add(time.Duration(id>>32) * time.Second)
	assert.WithinDuration(t, time.Now().UTC(), issuedAt, 5*time.Second)

	// 当日首个序列号为 1
	assert.Equal(t, int64(1), id&0xFFFFFFFF)
}

func TestNextIDConcurrentUnique(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	gen, err := idgen.New(conn, nil)
	require.NoError(t, err)

	const (
		workers = 100
		perWork = 100
	)
	ctx := context.Background()

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWork)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWork)
			for j := 0; j < perWork; j++ {
				id, gerr := gen.NextID(ctx, "order")
				assert.NoError(t, gerr)
				ids = append(ids, id)
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWork, "并发发放的 ID 必须全局唯一")
}

func TestNextIDSeparateBizSequences(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	gen, err := idgen.New(conn, nil)
	require.NoError(t, err)

	ctx := context.Background()
	orderID, err := gen.NextID(ctx, "order")
	require.NoError(t, err)
	voucherID, err := gen.NextID(ctx, "voucher")
	require.NoError(t, err)

	// 不同业务独立计数，两者当日序列号都应是 1
	assert.Equal(t, int64(1), orderID&0xFFFFFFFF)
	assert.Equal(t, int64(1), voucherID&0xFFFFFFFF)
}

func TestNextIDEmptyBizKey(t *testing.T) {
	_, conn := testkit.NewMiniRedis(t)
	gen, err := idgen.New(conn, nil)
	require.NoError(t, err)

	_, err = gen.NextID(context.Background(), "")
	assert.Error(t, err)
}

func TestNewUUID(t *testing.T) {
	a, b := idgen.NewUUID(), idgen.NewUUID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)

	v7, err := idgen.NewUUIDv7()
	require.NoError(t, err)
	assert.Len(t, v7, 36)
}
