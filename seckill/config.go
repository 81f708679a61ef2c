package seckill

import (
	"time"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/idgen"
	"github.com/ceyewan/surge/metrics"
)

// Config 秒杀管道配置
type Config struct {
	// Prefix 秒杀相关 Redis key 前缀，默认 "seckill:"
	//
	// 库存 key 形如 "seckill:stock:{voucherID}"，
	// 去重集合形如 "seckill:order:{voucherID}"。
	Prefix string `mapstructure:"prefix"`

	// Stream 订单消息流名称，默认 "stream.orders"
	Stream string `mapstructure:"stream"`

	// Group 消费者组名称，默认 "g1"
	Group string `mapstructure:"group"`

	// Consumer 消费者名称，默认 "c1"
	//
	// 多实例部署时每个实例应使用不同的消费者名称。
	Consumer string `mapstructure:"consumer"`

	// BlockTimeout 实时消费单次阻塞读取时长，默认 2s
	//
	// 负值表示非阻塞轮询（主要用于测试环境）。
	BlockTimeout time.Duration `mapstructure:"block_timeout"`

	// OrderLockPrefix 一人一单锁前缀，默认 "lock:order:"
	OrderLockPrefix string `mapstructure:"order_lock_prefix"`

	// OrderLockTTL 一人一单锁租约，默认 10s
	OrderLockTTL time.Duration `mapstructure:"order_lock_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Prefix:          "seckill:",
		Stream:          "stream.orders",
		Group:           "g1",
		Consumer:        "c1",
		BlockTimeout:    2 * time.Second,
		OrderLockPrefix: "lock:order:",
		OrderLockTTL:    10 * time.Second,
	}
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "seckill:"
	}
	if c.Stream == "" {
		c.Stream = "stream.orders"
	}
	if c.Group == "" {
		c.Group = "g1"
	}
	if c.Consumer == "" {
		c.Consumer = "c1"
	}
	if c.BlockTimeout == 0 {
		c.BlockTimeout = 2 * time.Second
	}
	if c.OrderLockPrefix == "" {
		c.OrderLockPrefix = "lock:order:"
	}
	if c.OrderLockTTL <= 0 {
		c.OrderLockTTL = 10 * time.Second
	}
}

// Option 组件级选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	locker    dlock.Locker
	generator idgen.Generator
}

// WithLogger 注入日志器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("seckill")
		}
	}
}

// WithMeter 注入指标采集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithLocker 注入一人一单锁
//
// 未注入时组件基于同一 Redis 连接器自建，注入的锁由调用方负责关闭。
func WithLocker(locker dlock.Locker) Option {
	return func(o *options) {
		if locker != nil {
			o.locker = locker
		}
	}
}

// WithGenerator 注入订单号生成器
func WithGenerator(gen idgen.Generator) Option {
	return func(o *options) {
		if gen != nil {
			o.generator = gen
		}
	}
}
