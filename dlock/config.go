package dlock

import (
	"fmt"
	"time"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/metrics"
)

// Config 分布式锁配置
type Config struct {
	// Prefix 锁 key 前缀，默认 "lock:"
	Prefix string `mapstructure:"prefix"`
	// DefaultTTL 默认租约时长，默认 10s
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Prefix:     "lock:",
		DefaultTTL: 10 * time.Second,
	}
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "lock:"
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.DefaultTTL < 100*time.Millisecond {
		return fmt.Errorf("%w: default_ttl 过短 (%v)", ErrInvalidConfig, c.DefaultTTL)
	}
	return nil
}

// Option 组件级选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 注入日志器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("dlock")
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
