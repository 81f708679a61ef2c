// Package idgen 提供全局唯一 ID 生成能力。
//
// NextID 生成的 ID 为 64 位整数，高位为相对纪元的秒级时间戳，
// 低 32 位为 Redis 按天自增的序列号:
//
//	| 1 bit 符号 | 31 bit 相对秒数 | 32 bit 当日序列号 |
//
// 特点:
//   - 趋势递增: 时间戳在高位，适合作为数据库主键
//   - 按天分 key 计数: 序列号每天归零，同时便于按日统计发号量
//   - 多实例安全: 序列号由 Redis INCR 保证全局唯一
//
// 另提供基于 google/uuid 的随机 ID，用于无序场景（令牌、临时标识）。
package idgen

import (
	"context"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/metrics"
	"github.com/google/uuid"
)

// Generator 分布式 ID 生成器接口
type Generator interface {
	// NextID 为指定业务生成下一个全局唯一 ID
	//
	// bizKey 区分业务序列（如 "order"、"voucher"），不同业务的
	// 序列号独立计数。
	NextID(ctx context.Context, bizKey string) (int64, error)
}

// New 创建 ID 生成器
//
// conn 为已初始化的 Redis 连接器，cfg 为 nil 时使用默认配置。
func New(conn connector.RedisConnector, cfg *Config, opts ...Option) (Generator, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	options := &options{
		logger: clog.Default().WithNamespace("idgen"),
		meter:  metrics.Noop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return newRedisGenerator(conn, cfg, options)
}

// NewUUID 返回 UUID v4 字符串，用于无序的随机标识
func NewUUID() string {
	return uuid.New().String()
}

// NewUUIDv7 返回 UUID v7 字符串，时间有序，适合日志与追踪标识
func NewUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
