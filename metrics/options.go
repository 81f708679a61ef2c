package metrics

import "github.com/ceyewan/surge/clog"

// Option Meter 选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 注入日志器，用于内置 Prometheus 服务器的运行日志
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}
