// Package tracing 初始化 OpenTelemetry 链路追踪.
//
// NewTracerProvider 设置全局 TracerProvider 与 W3C 传播器，
// rocketmq.WithProducerTracing / rocketmq.WithConsumerTracing 创建的 span 通过它导出.
package tracing

// Config 链路追踪配置.
type Config struct {
	// Enabled 是否启用链路追踪，未启用时不导出任何 span
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// ServiceName 服务名称，启用时必填
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion 服务版本
	ServiceVersion string `json:"service_version" yaml:"service_version" mapstructure:"service_version"`
	// Endpoint OTLP HTTP Collector 端点，例：localhost:4318
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	// Secure 是否使用 HTTPS
	Secure bool `json:"secure" yaml:"secure" mapstructure:"secure"`
	// Headers 请求头[可选]
	Headers map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`
	// SamplingRate 采样率 (0.0-1.0]，超出范围时全量采样
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate" mapstructure:"sampling_rate"`
}
