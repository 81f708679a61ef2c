package metrics

// Config 指标系统配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "surge"
//	  version: "v1.0.0"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 是否启用指标收集
	// 为 false 时 New() 返回 noop Meter，所有操作都是空操作
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName 服务名称（OTel Resource 的 service.name）
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// Version 服务版本（OTel Resource 的 service.version）
	Version string `mapstructure:"version" json:"version" yaml:"version"`

	// Port Prometheus HTTP 服务器监听端口，大于 0 时启动内置服务器
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// Path Prometheus 指标路径，默认 "/metrics"
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "surge"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
