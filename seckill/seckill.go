// Package seckill 提供高并发秒杀下单管道。
//
// 下单分为两个阶段:
//
//  1. 准入（同步）: Submit 通过一段 Lua 脚本原子地完成库存校验、
//     一人一单去重、预扣库存，并将订单消息追加进 Redis Stream。
//     三步在脚本内完成，不存在"判定通过但消息未入队"的窗口。
//  2. 落库（异步）: 后台消费者通过消费者组读取订单消息，在数据库
//     中条件扣减库存并落单，成功后 ACK。进程崩溃后未 ACK 的消息
//     经 pending-list 重放，不会丢单。
//
// 准入结果即最终结果: Submit 返回订单号即代表下单成功，数据库落单
// 仅是异步兑现。
//
// 使用示例:
//
//	pipe, err := seckill.New(redisConn, store, nil)
//	if err := pipe.Start(ctx); err != nil { ... }
//	defer pipe.Close()
//
//	orderID, err := pipe.Submit(ctx, userID, voucherID)
//	switch {
//	case errors.Is(err, seckill.ErrSoldOut):      // 已售罄
//	case errors.Is(err, seckill.ErrDuplicateOrder): // 重复下单
//	}
package seckill

import (
	"context"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/idgen"
	"github.com/ceyewan/surge/metrics"
)

// Pipeline 秒杀下单管道接口
type Pipeline interface {
	// PrimeStock 预热指定优惠券的 Redis 库存并清空去重集合
	//
	// 需在活动开始前调用，未预热的优惠券 Submit 一律返回 ErrSoldOut。
	PrimeStock(ctx context.Context, voucherID int64, stock int64) error

	// Submit 提交秒杀请求，返回订单号
	//
	// 售罄返回 ErrSoldOut，同一用户重复下单返回 ErrDuplicateOrder，
	// 不在活动时间窗口内返回 ErrNotStarted / ErrEnded。
	Submit(ctx context.Context, userID, voucherID int64) (int64, error)

	// Start 启动后台消费者
	//
	// 先重放本消费者 pending-list 中未确认的历史消息（崩溃恢复），
	// 再进入实时消费循环。重复调用返回 ErrAlreadyStarted。
	Start(ctx context.Context) error

	// Close 停止消费者并等待处理中的消息完成
	Close() error
}

// New 创建秒杀管道
//
// conn 为已初始化的 Redis 连接器，store 为订单与库存的数据库存取
// 实现，cfg 为 nil 时使用默认配置。
func New(conn connector.RedisConnector, store Store, cfg *Config, opts ...Option) (Pipeline, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	if store == nil {
		return nil, ErrStoreNil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	options := &options{
		logger: clog.Default().WithNamespace("seckill"),
		meter:  metrics.Noop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// 未注入的依赖基于同一连接器构建
	ownLocker := options.locker == nil
	if ownLocker {
		locker, err := dlock.New(conn, &dlock.Config{
			Prefix:     cfg.OrderLockPrefix,
			DefaultTTL: cfg.OrderLockTTL,
		}, dlock.WithLogger(options.logger), dlock.WithMeter(options.meter))
		if err != nil {
			return nil, err
		}
		options.locker = locker
	}
	if options.generator == nil {
		gen, err := idgen.New(conn, nil,
			idgen.WithLogger(options.logger), idgen.WithMeter(options.meter))
		if err != nil {
			return nil, err
		}
		options.generator = gen
	}

	return newPipeline(conn, store, cfg, options, ownLocker)
}
