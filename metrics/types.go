// Package metrics 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，提供简洁的 Counter、Gauge、Histogram 指标接口，
// 并内置 Prometheus HTTP 端点用于指标暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "surge",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("cache_hits_total", "缓存命中总数")
//	counter.Inc(ctx, metrics.L("strategy", "logical_expire"))
package metrics

import "context"

// Counter 计数器接口，用于只增不减的累计值
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值（应为非负数）
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口，用于可增可减的瞬时值
type Gauge interface {
	// Set 将 gauge 设置为给定的值
	Set(ctx context.Context, val float64, labels ...Label)

	// Inc 将 gauge 增加 1
	Inc(ctx context.Context, labels ...Label)

	// Dec 将 gauge 减少 1
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口，用于记录值的分布（耗时、大小等）
type Histogram interface {
	// Record 记录一个观测值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标工厂接口
//
// 同名指标会返回同一个底层实例，可安全地在多个组件间复用。
type Meter interface {
	// Counter 创建或获取计数器
	Counter(name, description string) (Counter, error)

	// Gauge 创建或获取仪表盘
	Gauge(name, description string) (Gauge, error)

	// Histogram 创建或获取直方图
	Histogram(name, description string) (Histogram, error)

	// Shutdown 停止指标导出并关闭内置 HTTP 服务器
	Shutdown(ctx context.Context) error
}
