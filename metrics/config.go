package metrics

// Config 指标系统配置
//
// 典型配置（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "asnkeeper"
//	  version: "v1.0.0"
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回空实现
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version"`

	// Path Prometheus 采集路径，由 HTTP 服务挂载 Handler 时使用
	Path string `mapstructure:"path"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "asnkeeper"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
