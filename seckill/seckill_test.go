package seckill_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/db"
	"github.com/ceyewan/surge/seckill"
	"github.com/ceyewan/surge/testkit"
	"github.com/ceyewan/surge/xerrors"
)

type fixture struct {
	conn     connector.RedisConnector
	client   *redis.Client
	database db.DB
	store    *seckill.GormStore
	pipe     seckill.Pipeline
}

// newFixture 构建基于 miniredis 与 SQLite 内存库的测试环境
//
// BlockTimeout 取负值使消费者以非阻塞方式轮询。
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	_, conn := testkit.NewMiniRedis(t)
	database := testkit.NewSQLiteDB(t)

	store, err := seckill.NewGormStore(database)
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(ctx))
	// cache=shared 的内存库在同进程内共享，清掉上个测试的残留
	require.NoError(t, database.DB(ctx).Exec("DELETE FROM voucher_orders").Error)
	require.NoError(t, database.DB(ctx).Exec("DELETE FROM seckill_vouchers").Error)

	pipe, err := seckill.New(conn, store, &seckill.Config{BlockTimeout: -1},
		seckill.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pipe.Close() })

	return &fixture{
		conn:     conn,
		client:   conn.GetClient(),
		database: database,
		store:    store,
		pipe:     pipe,
	}
}

// seedVoucher 写入活动窗口内的优惠券并预热 Redis 库存
func (f *fixture) seedVoucher(t *testing.T, voucherID, stock int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveVoucher(ctx, &seckill.Voucher{
		VoucherID: voucherID,
		Stock:     stock,
		BeginTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, f.pipe.PrimeStock(ctx, voucherID, stock))
}

func (f *fixture) orderCount(t *testing.T, voucherID int64) int64 {
	t.Helper()
	var count int64
	err := f.database.DB(context.Background()).Model(&seckill.Order{}).
		Where("voucher_id = ?", voucherID).Count(&count).Error
	require.NoError(t, err)
	return count
}

// 库存 3 份、10 个用户并发抢购: 恰好 3 人准入，订单全部落库
func TestSubmitConcurrentOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const voucherID = 101

	f.seedVoucher(t, voucherID, 3)

	const users = 10
	var admitted, soldOut atomic.Int32
	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := f.pipe.Submit(ctx, userID, voucherID)
			switch {
			case err == nil:
				admitted.Add(1)
			case xerrors.Is(err, seckill.ErrSoldOut):
				soldOut.Add(1)
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int32(3), admitted.Load(), "准入数必须等于库存")
	assert.Equal(t, int32(users-3), soldOut.Load())

	// 准入即入流
	assert.Equal(t, int64(3), f.client.XLen(ctx, "stream.orders").Val())

	require.NoError(t, f.pipe.Start(ctx))
	require.Eventually(t, func() bool {
		return f.orderCount(t, voucherID) == 3
	}, 3*time.Second, 20*time.Millisecond, "消费者应把全部准入订单落库")

	// 数据库库存同步扣减
	voucher, err := f.store.GetVoucher(ctx, voucherID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), voucher.Stock)
}

func TestSubmitDuplicateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const voucherID = 102

	f.seedVoucher(t, voucherID, 10)

	orderID, err := f.pipe.Submit(ctx, 42, voucherID)
	require.NoError(t, err)
	assert.Positive(t, orderID)

	_, err = f.pipe.Submit(ctx, 42, voucherID)
	assert.ErrorIs(t, err, seckill.ErrDuplicateOrder)

	// 重复提交不额外占用库存
	stock, err := f.client.Get(ctx, "seckill:stock:102").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9), stock)
}

func TestSubmitActivityWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveVoucher(ctx, &seckill.Voucher{
		VoucherID: 103,
		Stock:     5,
		BeginTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(2 * time.Hour),
	}))
	_, err := f.pipe.Submit(ctx, 1, 103)
	assert.ErrorIs(t, err, seckill.ErrNotStarted)

	require.NoError(t, f.store.SaveVoucher(ctx, &seckill.Voucher{
		VoucherID: 104,
		Stock:     5,
		BeginTime: time.Now().Add(-2 * time.Hour),
		EndTime:   time.Now().Add(-time.Hour),
	}))
	_, err = f.pipe.Submit(ctx, 1, 104)
	assert.ErrorIs(t, err, seckill.ErrEnded)
}

func TestSubmitUnknownVoucher(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipe.Submit(context.Background(), 1, 999)
	assert.ErrorIs(t, err, seckill.ErrVoucherNotFound)
}

// 未预热 Redis 库存的优惠券视为售罄
func TestSubmitUnprimedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveVoucher(ctx, &seckill.Voucher{
		VoucherID: 105,
		Stock:     5,
		BeginTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	}))

	_, err := f.pipe.Submit(ctx, 1, 105)
	assert.ErrorIs(t, err, seckill.ErrSoldOut)
}

// 消息已投递但未确认时进程崩溃，重启后经 pending-list 重放落库
func TestConsumerCrashRecovery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const voucherID = 106

	f.seedVoucher(t, voucherID, 5)

	for userID := int64(1); userID <= 3; userID++ {
		_, err := f.pipe.Submit(ctx, userID, voucherID)
		require.NoError(t, err)
	}

	// 模拟崩溃: 消息投递给消费者 c1 后未处理、未确认
	require.NoError(t, f.client.XGroupCreateMkStream(ctx, "stream.orders", "g1", "0").Err())
	delivered, err := f.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "g1",
		Consumer: "c1",
		Streams:  []string{"stream.orders", ">"},
		Count:    10,
		Block:    -1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, delivered[0].Messages, 3)
	require.Equal(t, int64(0), f.orderCount(t, voucherID))

	// 重启消费者，启动时重放 pending-list
	require.NoError(t, f.pipe.Start(ctx))
	require.Eventually(t, func() bool {
		return f.orderCount(t, voucherID) == 3
	}, 3*time.Second, 20*time.Millisecond, "未确认的消息重启后应重放落库")

	// 重放完成后 pending-list 清空
	require.Eventually(t, func() bool {
		pending, perr := f.client.XPending(ctx, "stream.orders", "g1").Result()
		return perr == nil && pending.Count == 0
	}, 3*time.Second, 20*time.Millisecond)
}

// 订单已落库的消息重放时幂等跳过，不重复扣减数据库库存
func TestMaterializeIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const voucherID = 107

	f.seedVoucher(t, voucherID, 5)

	// 数据库已有该用户订单（模拟上轮处理写库成功但 ACK 前崩溃）
	require.NoError(t, f.database.DB(ctx).Create(&seckill.Order{
		ID: 900001, UserID: 7, VoucherID: voucherID,
	}).Error)

	_, err := f.pipe.Submit(ctx, 7, voucherID)
	require.NoError(t, err)

	require.NoError(t, f.pipe.Start(ctx))
	require.Eventually(t, func() bool {
		pending, perr := f.client.XPending(ctx, "stream.orders", "g1").Result()
		return perr == nil && pending.Count == 0
	}, 3*time.Second, 20*time.Millisecond, "幂等跳过的消息也应被确认")

	assert.Equal(t, int64(1), f.orderCount(t, voucherID), "不应产生重复订单")

	// 数据库库存未被重复扣减
	voucher, err := f.store.GetVoucher(ctx, voucherID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), voucher.Stock)
}

func TestStartTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pipe.Start(ctx))
	assert.ErrorIs(t, f.pipe.Start(ctx), seckill.ErrAlreadyStarted)

	require.NoError(t, f.pipe.Close())
	_, err := f.pipe.Submit(ctx, 1, 1)
	assert.ErrorIs(t, err, seckill.ErrClosed)
}
