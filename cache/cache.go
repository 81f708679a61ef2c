// Package cache 提供基于 Redis 的读穿缓存，内置缓存穿透与缓存击穿防护。
//
// 两种读取策略:
//   - GetOrLoad: 读穿 + 空值缓存。未命中时回源加载，源中不存在的 key
//     写入短 TTL 空值标记，拦截对不存在数据的反复回源（防穿透）
//   - GetStale: 逻辑过期。数据永不因 TTL 消失，过期后由单个持有
//     互斥锁的调用方触发异步重建，其余调用方直接返回旧值（防击穿）
//
// 组件不持有 Redis 连接，通过 connector 注入；击穿防护内部复用
// dlock 组件实现互斥。
//
// 使用示例:
//
//	client, err := cache.New(redisConn, &cache.Config{Prefix: "shop:"})
//	var shop Shop
//	found, err := client.GetOrLoad(ctx, "1001", &shop, 30*time.Minute,
//	    func(ctx context.Context) (any, error) {
//	        return shopStore.GetByID(ctx, 1001)
//	    })
package cache

import (
	"context"
	"time"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/metrics"
)

// LoadFunc 回源加载函数
//
// 返回 (nil, nil) 表示数据在源中不存在，缓存层会写入空值标记。
type LoadFunc func(ctx context.Context) (any, error)

// Client 缓存客户端接口
type Client interface {
	// Set 写入缓存，使用物理 TTL
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// SetWithLogicalExpire 写入携带逻辑过期时间的缓存，key 本身不设 TTL
	//
	// 用于热点数据预热，GetStale 只认本方法写入的封套格式。
	SetWithLogicalExpire(ctx context.Context, key string, value any, ttl time.Duration) error

	// GetOrLoad 读穿查询，带空值缓存防穿透
	//
	// 命中时反序列化到 dest 并返回 true。命中空值标记或源中不存在时
	// 返回 (false, nil)。未命中时同步调用 load 回源并回填。
	GetOrLoad(ctx context.Context, key string, dest any, ttl time.Duration, load LoadFunc) (bool, error)

	// GetStale 逻辑过期查询，带互斥重建防击穿
	//
	// key 未预热时返回 (false, nil)。数据逻辑过期后，抢到重建锁的
	// 调用方提交异步重建任务，所有调用方（包括触发者）立即返回当前
	// 旧值。ttl 为重建后数据的逻辑存活时长。
	GetStale(ctx context.Context, key string, dest any, ttl time.Duration, load LoadFunc) (bool, error)

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Close 等待进行中的重建任务完成并释放资源
	Close() error
}

// New 创建缓存客户端
//
// conn 为已初始化的 Redis 连接器，cfg 为 nil 时使用默认配置。
func New(conn connector.RedisConnector, cfg *Config, opts ...Option) (Client, error) {
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
		logger: clog.Default().WithNamespace("cache"),
		meter:  metrics.Noop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// 未注入锁时基于同一连接器构建，生命周期由本组件管理
	ownLocker := options.locker == nil
	if ownLocker {
		locker, err := dlock.New(conn, &dlock.Config{
			Prefix:     cfg.LockPrefix,
			DefaultTTL: cfg.LockTTL,
		}, dlock.WithLogger(options.logger), dlock.WithMeter(options.meter))
		if err != nil {
			return nil, err
		}
		options.locker = locker
	}

	return newRedisCache(conn, cfg, options, ownLocker)
}
