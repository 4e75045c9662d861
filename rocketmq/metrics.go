package rocketmq

import (
	"time"

	"github.com/Tsukikage7/rocketmq-kit/metrics"
)

// clientMetrics RocketMQ 指标记录器.
//
// 封装 metrics.PrometheusCollector，未配置收集器时所有方法均为空操作.
type clientMetrics struct {
	collector *metrics.PrometheusCollector
}

// newClientMetrics 创建指标记录器，collector 为 nil 时返回 nil.
func newClientMetrics(collector *metrics.PrometheusCollector) *clientMetrics {
	if collector == nil {
		return nil
	}
	return &clientMetrics{collector: collector}
}

// RecordSend 记录消息发送结果.
func (m *clientMetrics) RecordSend(topic, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.collector.Counter("rocketmq_messages_sent_total", map[string]string{"topic": topic, "status": status})
	m.collector.Histogram("rocketmq_send_duration_seconds", latency.Seconds(), map[string]string{"topic": topic})
}

// RecordSendError 记录发送错误.
func (m *clientMetrics) RecordSendError(topic string) {
	if m == nil {
		return
	}
	m.collector.Counter("rocketmq_send_errors_total", map[string]string{"topic": topic})
}

// RecordConsume 记录消息消费.
func (m *clientMetrics) RecordConsume(topic, group string, count int, latency time.Duration) {
	if m == nil {
		return
	}
	labels := map[string]string{"topic": topic, "group": group}
	m.collector.CounterAdd("rocketmq_messages_consumed_total", float64(count), labels)
	m.collector.Histogram("rocketmq_consume_duration_seconds", latency.Seconds(), labels)
}

// RecordConsumeError 记录消费错误.
func (m *clientMetrics) RecordConsumeError(topic, group string) {
	if m == nil {
		return
	}
	m.collector.Counter("rocketmq_consume_errors_total", map[string]string{"topic": topic, "group": group})
}

// RecordReload 记录客户端重建.
func (m *clientMetrics) RecordReload(role, group string) {
	if m == nil {
		return
	}
	m.collector.Counter("rocketmq_client_reloads_total", map[string]string{"role": role, "group": group})
}

// RecordStartError 记录客户端启动失败.
func (m *clientMetrics) RecordStartError(role, group string) {
	if m == nil {
		return
	}
	m.collector.Counter("rocketmq_client_start_errors_total", map[string]string{"role": role, "group": group})
}

// RecordState 记录客户端当前状态.
func (m *clientMetrics) RecordState(role, group string, state State) {
	if m == nil {
		return
	}
	m.collector.Gauge("rocketmq_client_state", float64(state), map[string]string{"role": role, "group": group})
}
