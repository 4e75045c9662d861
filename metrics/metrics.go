// Package metrics 提供 Prometheus 指标收集功能.
//
// 每个 PrometheusCollector 持有独立的注册表，指标在首次记录时按名称懒注册.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// 预定义错误.
var (
	// ErrNilConfig 指标配置为空.
	ErrNilConfig = errors.New("metrics: 指标配置为空")
	// ErrRegisterMetric 注册指标失败.
	ErrRegisterMetric = errors.New("metrics: 注册指标失败")
)

// Config 指标监控配置.
type Config struct {
	// Path 指标暴露路径，默认 /metrics
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// Namespace 指标命名空间
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	// Buckets 直方图分桶，为空时使用 prometheus.DefBuckets
	Buckets []float64 `json:"buckets" yaml:"buckets" mapstructure:"buckets"`
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	return &Config{
		Path:      "/metrics",
		Namespace: "app",
	}
}

// Collector 指标收集器接口.
type Collector interface {
	Counter(name string, labels map[string]string)
	CounterAdd(name string, n float64, labels map[string]string)
	Histogram(name string, value float64, labels map[string]string)
	Gauge(name string, value float64, labels map[string]string)

	Handler() http.Handler
	Path() string
	Registry() *prometheus.Registry
}

// NewMetrics 创建指标收集器.
func NewMetrics(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return NewPrometheus(cfg)
}

// MustNewMetrics 创建指标收集器，失败时 panic.
func MustNewMetrics(cfg *Config) *PrometheusCollector {
	c, err := NewMetrics(cfg)
	if err != nil {
		panic(err)
	}
	return c
}
