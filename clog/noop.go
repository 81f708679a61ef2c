package clog

import "context"

// noopLogger 丢弃所有日志
type noopLogger struct{}

// Discard 返回一个丢弃所有输出的 Logger，用于测试或禁用日志的场景
func Discard() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}

func (noopLogger) DebugContext(context.Context, string, ...Field) {}
func (noopLogger) InfoContext(context.Context, string, ...Field)  {}
func (noopLogger) WarnContext(context.Context, string, ...Field)  {}
func (noopLogger) ErrorContext(context.Context, string, ...Field) {}

func (n noopLogger) With(...Field) Logger          { return n }
func (n noopLogger) WithNamespace(...string) Logger { return n }
