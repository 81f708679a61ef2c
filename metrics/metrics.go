package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/surge/clog"
)

// New 创建 Meter 实例
//
// cfg.Enabled 为 false 时返回 noop 实现。
// cfg.Port > 0 时启动内置 Prometheus HTTP 服务器暴露指标。
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("metrics: config is required")
	}
	if !cfg.Enabled {
		return Noop(), nil
	}
	cfg.setDefaults()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Default().WithNamespace("metrics")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	m := &meterImpl{
		meter:      mp.Meter(cfg.ServiceName),
		provider:   mp,
		counters:   make(map[string]Counter),
		gauges:     make(map[string]Gauge),
		histograms: make(map[string]Histogram),
	}

	if cfg.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle(cfg.Path, promhttp.Handler())
		m.server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: mux,
		}
		go func() {
			if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				// 端口被占用等启动期错误只能在此感知
				opt.logger.Error("prometheus server exited", clog.Error(err))
			}
		}()
	}

	return m, nil
}

// Must 类似 New，但出错时 panic。仅用于初始化阶段。
func Must(cfg *Config, opts ...Option) Meter {
	m, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics: %v", err))
	}
	return m
}

// meterImpl 实现 Meter 接口
type meterImpl struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	server   *http.Server

	mu         sync.Mutex
	counters   map[string]Counter
	gauges     map[string]Gauge
	histograms map[string]Histogram
}

func (m *meterImpl) Counter(name, description string) (Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Float64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	wrapped := &counterImpl{c: c}
	m.counters[name] = wrapped
	return wrapped, nil
}

func (m *meterImpl) Gauge(name, description string) (Gauge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g, nil
	}
	g, err := m.meter.Float64UpDownCounter(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	wrapped := &gaugeImpl{g: g, values: make(map[string]float64)}
	m.gauges[name] = wrapped
	return wrapped, nil
}

func (m *meterImpl) Histogram(name, description string) (Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h, nil
	}
	h, err := m.meter.Float64Histogram(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	wrapped := &histogramImpl{h: h}
	m.histograms[name] = wrapped
	return wrapped, nil
}

func (m *meterImpl) Shutdown(ctx context.Context) error {
	if m.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = m.server.Shutdown(shutdownCtx)
	}
	return m.provider.Shutdown(ctx)
}

// counterImpl 基于 OTel Float64Counter
type counterImpl struct {
	c metric.Float64Counter
}

func (c *counterImpl) Inc(ctx context.Context, labels ...Label) {
	c.Add(ctx, 1, labels...)
}

func (c *counterImpl) Add(ctx context.Context, val float64, labels ...Label) {
	c.c.Add(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

// gaugeImpl 基于 UpDownCounter 模拟 Set 语义
type gaugeImpl struct {
	g      metric.Float64UpDownCounter
	mu     sync.Mutex
	values map[string]float64
}

func (g *gaugeImpl) Set(ctx context.Context, val float64, labels ...Label) {
	key := labelKey(labels)
	g.mu.Lock()
	prev := g.values[key]
	g.values[key] = val
	g.mu.Unlock()
	g.g.Add(ctx, val-prev, metric.WithAttributes(toAttributes(labels)...))
}

func (g *gaugeImpl) Inc(ctx context.Context, labels ...Label) {
	g.mu.Lock()
	g.values[labelKey(labels)]++
	g.mu.Unlock()
	g.g.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (g *gaugeImpl) Dec(ctx context.Context, labels ...Label) {
	g.mu.Lock()
	g.values[labelKey(labels)]--
	g.mu.Unlock()
	g.g.Add(ctx, -1, metric.WithAttributes(toAttributes(labels)...))
}

func labelKey(labels []Label) string {
	key := ""
	for _, l := range labels {
		key += l.Key + "=" + l.Value + ";"
	}
	return key
}

// histogramImpl 基于 OTel Float64Histogram
type histogramImpl struct {
	h metric.Float64Histogram
}

func (h *histogramImpl) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}
