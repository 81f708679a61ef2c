package metrics

// MustCounter 创建计数器，失败时退化为空操作实现
//
// 指标注册失败不应阻断业务组件初始化，组件内部统一使用该辅助函数。
func MustCounter(m Meter, name, description string) Counter {
	c, err := m.Counter(name, description)
	if err != nil {
		return noopCounter{}
	}
	return c
}

// MustGauge 创建仪表盘，失败时退化为空操作实现
func MustGauge(m Meter, name, description string) Gauge {
	g, err := m.Gauge(name, description)
	if err != nil {
		return noopGauge{}
	}
	return g
}

// MustHistogram 创建直方图，失败时退化为空操作实现
func MustHistogram(m Meter, name, description string) Histogram {
	h, err := m.Histogram(name, description)
	if err != nil {
		return noopHistogram{}
	}
	return h
}
