// Package clog 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，便于区分组件来源
//   - 采用函数式选项模式
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("cache rebuilt", clog.String("key", "shop:1"))
//
// 组件内派生子 Logger：
//
//	child := logger.WithNamespace("seckill")
package clog

import (
	"context"
	"sync"
)

// Logger 日志接口，提供结构化日志记录功能。
//
// 支持 Debug/Info/Warn/Error 四个级别，每个级别都有带 Context 的版本。
// With 返回携带固定字段的子 Logger，WithNamespace 返回带层级命名空间的子 Logger。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	With(fields ...Field) Logger
	WithNamespace(parts ...string) Logger
}

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用默认开发配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("surge")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts...)
	return newLogger(config, options)
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// Default 返回进程级默认 Logger（info 级别、console 格式）。
// 仅作为组件未注入 Logger 时的兜底，业务方应显式注入。
func Default() Logger {
	defaultOnce.Do(func() {
		l, err := New(&Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			l = Discard()
		}
		defaultLogger = l
	})
	return defaultLogger
}
