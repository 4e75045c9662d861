package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Collector = (*PrometheusCollector)(nil)

// PrometheusCollector Prometheus 指标收集器实现.
type PrometheusCollector struct {
	config    *Config
	namespace string
	buckets   []float64

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	mu         sync.RWMutex

	registry *prometheus.Registry
}

// NewPrometheus 创建 Prometheus 指标收集器.
//
// 使用独立注册表，避免与默认注册表冲突；同时注册 Go 运行时与进程指标.
func NewPrometheus(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "app"
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()
	for _, collector := range []prometheus.Collector{
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegisterMetric, err)
		}
	}

	return &PrometheusCollector{
		config:     cfg,
		namespace:  namespace,
		buckets:    buckets,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		registry:   registry,
	}, nil
}

// Counter 增加计数器.
//
// 使用示例:
//
//	collector.Counter("rocketmq_messages_sent_total", map[string]string{"topic": "orders", "status": "SEND_OK"})
func (c *PrometheusCollector) Counter(name string, labels map[string]string) {
	c.CounterAdd(name, 1, labels)
}

// CounterAdd 将计数器增加 n，n 不为正数时忽略.
//
// 一次回调包含多条消息时用于批量计数.
func (c *PrometheusCollector) CounterAdd(name string, n float64, labels map[string]string) {
	if n <= 0 {
		return
	}
	labelNames, labelValues := extractLabels(labels)

	c.mu.RLock()
	counter, exists := c.counters[name]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		// 双重检查
		if counter, exists = c.counters[name]; !exists {
			counter = prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: c.namespace,
					Name:      name,
					Help:      "Counter: " + name,
				},
				labelNames,
			)
			if err := c.registry.Register(counter); err == nil {
				c.counters[name] = counter
			} else {
				counter = nil
			}
		}
		c.mu.Unlock()
	}

	if counter != nil {
		counter.WithLabelValues(labelValues...).Add(n)
	}
}

// Histogram 观察直方图.
func (c *PrometheusCollector) Histogram(name string, value float64, labels map[string]string) {
	labelNames, labelValues := extractLabels(labels)

	c.mu.RLock()
	histogram, exists := c.histograms[name]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		if histogram, exists = c.histograms[name]; !exists {
			histogram = prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: c.namespace,
					Name:      name,
					Help:      "Histogram: " + name,
					Buckets:   c.buckets,
				},
				labelNames,
			)
			if err := c.registry.Register(histogram); err == nil {
				c.histograms[name] = histogram
			} else {
				histogram = nil
			}
		}
		c.mu.Unlock()
	}

	if histogram != nil {
		histogram.WithLabelValues(labelValues...).Observe(value)
	}
}

// Gauge 设置仪表盘.
func (c *PrometheusCollector) Gauge(name string, value float64, labels map[string]string) {
	labelNames, labelValues := extractLabels(labels)

	c.mu.RLock()
	gauge, exists := c.gauges[name]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		if gauge, exists = c.gauges[name]; !exists {
			gauge = prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: c.namespace,
					Name:      name,
					Help:      "Gauge: " + name,
				},
				labelNames,
			)
			if err := c.registry.Register(gauge); err == nil {
				c.gauges[name] = gauge
			} else {
				gauge = nil
			}
		}
		c.mu.Unlock()
	}

	if gauge != nil {
		gauge.WithLabelValues(labelValues...).Set(value)
	}
}

// extractLabels 从 map 中提取 label 名称和值.
// 通过排序 key 保证每次调用的顺序稳定.
func extractLabels(labels map[string]string) ([]string, []string) {
	labelNames := make([]string, 0, len(labels))
	for k := range labels {
		labelNames = append(labelNames, k)
	}
	sort.Strings(labelNames)

	labelValues := make([]string, 0, len(labels))
	for _, k := range labelNames {
		labelValues = append(labelValues, labels[k])
	}
	return labelNames, labelValues
}

// Handler 返回 metrics 的 HTTP 处理器.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Path 返回 metrics 暴露路径.
func (c *PrometheusCollector) Path() string {
	if c.config.Path == "" {
		return "/metrics"
	}
	return c.config.Path
}

// Registry 返回底层注册表.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}
