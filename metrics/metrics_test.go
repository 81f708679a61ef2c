package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	// noop Meter 的所有操作都应安全
	c, err := m.Counter("x_total", "测试")
	require.NoError(t, err)
	c.Inc(context.Background())
	c.Add(context.Background(), 5, L("k", "v"))

	require.NoError(t, m.Shutdown(context.Background()))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestMeter_Instruments(t *testing.T) {
	// 不开 HTTP 端口，避免测试间端口冲突
	m, err := New(&Config{Enabled: true, ServiceName: "surge-test"})
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	ctx := context.Background()

	c, err := m.Counter("orders_total", "订单总数")
	require.NoError(t, err)
	c.Inc(ctx, L("result", "admitted"))
	c.Add(ctx, 3, L("result", "sold_out"))

	g, err := m.Gauge("pending_entries", "待处理条目数")
	require.NoError(t, err)
	g.Set(ctx, 10)
	g.Inc(ctx)
	g.Dec(ctx)

	h, err := m.Histogram("rebuild_seconds", "缓存重建耗时")
	require.NoError(t, err)
	h.Record(ctx, 0.123, L("key_prefix", "shop"))

	// 同名指标应返回同一实例
	c2, err := m.Counter("orders_total", "订单总数")
	require.NoError(t, err)
	assert.Same(t, c, c2)
}

func TestLabelConversion(t *testing.T) {
	attrs := toAttributes([]Label{L("a", "1"), L("b", "2")})
	require.Len(t, attrs, 2)
	assert.Equal(t, "a", string(attrs[0].Key))
	assert.Equal(t, "1", attrs[0].Value.AsString())

	assert.Nil(t, toAttributes(nil))
}
