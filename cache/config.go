package cache

import (
	"fmt"
	"time"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/metrics"
)

// Config 缓存配置
type Config struct {
	// Prefix 缓存 key 前缀，默认 "cache:"
	Prefix string `mapstructure:"prefix"`

	// Serializer 序列化器类型: "json" (默认) 或 "msgpack"
	Serializer string `mapstructure:"serializer"`

	// NullTTL 空值标记的存活时长，默认 2m
	//
	// 源中不存在的 key 以该 TTL 缓存空值标记，拦截穿透流量；
	// 数据在源中出现后最多延迟 NullTTL 可见。
	NullTTL time.Duration `mapstructure:"null_ttl"`

	// LockPrefix 重建互斥锁前缀，默认 "cache:lock:"
	LockPrefix string `mapstructure:"lock_prefix"`

	// LockTTL 重建互斥锁租约，默认 10s，需覆盖一次回源重建的耗时
	LockTTL time.Duration `mapstructure:"lock_ttl"`

	// RebuildWorkers 异步重建工作协程数，默认 10
	RebuildWorkers int `mapstructure:"rebuild_workers"`

	// RebuildQueueSize 重建任务队列容量，默认 100
	//
	// 队列满时放弃本次重建（调用方仍返回旧值），等待下一次触发。
	RebuildQueueSize int `mapstructure:"rebuild_queue_size"`

	// RebuildTimeout 单次异步重建的超时，默认 10s
	RebuildTimeout time.Duration `mapstructure:"rebuild_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Prefix:           "cache:",
		Serializer:       "json",
		NullTTL:          2 * time.Minute,
		LockPrefix:       "cache:lock:",
		LockTTL:          10 * time.Second,
		RebuildWorkers:   10,
		RebuildQueueSize: 100,
		RebuildTimeout:   10 * time.Second,
	}
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "cache:"
	}
	if c.Serializer == "" {
		c.Serializer = "json"
	}
	if c.NullTTL <= 0 {
		c.NullTTL = 2 * time.Minute
	}
	if c.LockPrefix == "" {
		c.LockPrefix = "cache:lock:"
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.RebuildWorkers <= 0 {
		c.RebuildWorkers = 10
	}
	if c.RebuildQueueSize <= 0 {
		c.RebuildQueueSize = 100
	}
	if c.RebuildTimeout <= 0 {
		c.RebuildTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Serializer != "json" && c.Serializer != "msgpack" {
		return fmt.Errorf("%w: 未知序列化器 %q", ErrInvalidConfig, c.Serializer)
	}
	return nil
}

// Option 组件级选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	locker dlock.Locker
}

// WithLogger 注入日志器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("cache")
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

// WithLocker 注入重建互斥锁
//
// 未注入时组件基于同一 Redis 连接器自建 dlock 实例。注入的锁由
// 调用方负责关闭。
func WithLocker(locker dlock.Locker) Option {
	return func(o *options) {
		if locker != nil {
			o.locker = locker
		}
	}
}
