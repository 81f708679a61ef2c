package idgen

import (
	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/metrics"
	"github.com/ceyewan/surge/xerrors"
)

// ErrConnectorNil Redis 连接器为空
var ErrConnectorNil = xerrors.New("idgen: redis connector is nil")

// Config ID 生成器配置
type Config struct {
	// Prefix 序列号 key 前缀，默认 "idgen:"
	//
	// 完整 key 形如 "idgen:icr:order:2026:08:29"。
	Prefix string `mapstructure:"prefix"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{Prefix: "idgen:"}
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "idgen:"
	}
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
			o.logger = logger.WithNamespace("idgen")
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
