package metrics

import "go.opentelemetry.io/otel/attribute"

// Label 指标标签，用于为指标添加维度信息。
//
// 标签命名规范：小写字母加下划线，避免高基数值（用户 ID、订单 ID 等）。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
//
//	counter.Inc(ctx, metrics.L("result", "sold_out"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// toAttributes 将标签转换为 OTel 属性（内部使用）
func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	return attrs
}
