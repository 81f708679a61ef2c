// Package dlock 提供基于 Redis 的分布式互斥锁。
//
// 设计原则:
//   - 非阻塞: TryLock 只做一次抢占尝试，重试与退避策略由调用方决定
//   - 归属校验: 每次加锁生成唯一 owner token，释放时通过 Lua 脚本
//     比较并删除，保证不会误删其他持有者的锁
//   - 连接复用: 组件不持有 Redis 连接，通过 connector 注入
//
// 使用示例:
//
//	locker, err := dlock.New(redisConn, &dlock.Config{Prefix: "lock:"})
//	ok, err := locker.TryLock(ctx, "order:1001")
//	if ok {
//	    defer locker.Unlock(ctx, "order:1001")
//	    // 临界区
//	}
package dlock

import (
	"context"
	"time"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/metrics"
)

// Locker 分布式锁接口
type Locker interface {
	// TryLock 尝试获取锁，立即返回
	//
	// 返回 (true, nil) 表示成功获取；(false, nil) 表示锁被其他持有者占用。
	// 同一 Locker 实例重复获取已持有的 key 返回 ErrLockHeld。
	TryLock(ctx context.Context, key string, opts ...LockOption) (bool, error)

	// Unlock 释放锁
	//
	// 仅当锁仍由本实例持有时才会删除。锁已过期并被他人抢占时
	// 返回 ErrOwnershipLost 且不影响新持有者。
	Unlock(ctx context.Context, key string) error

	// Close 释放本实例持有的全部锁并停止续约
	Close() error
}

// New 创建分布式锁实例
//
// conn 为已初始化的 Redis 连接器，cfg 为 nil 时使用默认配置。
func New(conn connector.RedisConnector, cfg *Config, opts ...Option) (Locker, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	options := &options{
		logger: clog.Default().WithNamespace("dlock"),
		meter:  metrics.Noop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return newRedisLocker(conn, cfg, options)
}

// LockOption 单次加锁选项
type LockOption func(*lockOptions)

type lockOptions struct {
	ttl       time.Duration
	autoRenew bool
}

// WithTTL 指定本次加锁的租约时长，覆盖 Config.DefaultTTL
func WithTTL(ttl time.Duration) LockOption {
	return func(o *lockOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithAutoRenew 开启看门狗自动续约
//
// 持有期间每 ttl/3 续约一次，直到 Unlock 或 Close。适合临界区
// 执行时长无法预估的场景。默认关闭。
func WithAutoRenew() LockOption {
	return func(o *lockOptions) {
		o.autoRenew = true
	}
}
