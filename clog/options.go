package clog

import "time"

// Option Logger 选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	namespaceParts []string
}

// WithNamespace 为 Logger 设置初始命名空间，支持多级
//
//	clog.New(cfg, clog.WithNamespace("surge", "cache"))
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// timeNow 可在测试中替换
var timeNow = time.Now
