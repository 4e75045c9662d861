package rocketmq

import (
	"context"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// clientTracer RocketMQ 追踪器.
//
// 使用全局 OpenTelemetry TracerProvider 和 TextMapPropagator，
// 追踪上下文通过消息属性在生产者和消费者之间传递.
type clientTracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// newClientTracer 创建追踪器.
func newClientTracer(serviceName string) *clientTracer {
	return &clientTracer{
		tracer:     otel.Tracer(serviceName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// startSendSpan 开始发送 span 并将上下文注入消息属性.
func (t *clientTracer) startSendSpan(ctx context.Context, msg *primitive.Message, group string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "rocketmq.send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rocketmq"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.rocketmq.client_group", group),
			attribute.String("messaging.rocketmq.message.tag", msg.GetTags()),
		),
	)
	t.propagator.Inject(ctx, messageCarrier{msg: msg})
	return ctx, span
}

// startConsumeSpan 从第一条消息提取上下文并开始消费 span.
func (t *clientTracer) startConsumeSpan(ctx context.Context, msgs []*primitive.MessageExt, group string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("messaging.system", "rocketmq"),
		attribute.String("messaging.operation", "receive"),
		attribute.String("messaging.rocketmq.client_group", group),
		attribute.Int("messaging.batch.message_count", len(msgs)),
	}
	if len(msgs) > 0 && msgs[0] != nil {
		ctx = t.propagator.Extract(ctx, messageCarrier{msg: &msgs[0].Message})
		attrs = append(attrs,
			attribute.String("messaging.destination.name", msgs[0].Topic),
			attribute.String("messaging.message.id", msgs[0].MsgId),
		)
	}
	return t.tracer.Start(ctx, "rocketmq.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
	)
}

// setError 设置 span 错误.
func (t *clientTracer) setError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// messageCarrier 以消息属性实现 propagation.TextMapCarrier.
type messageCarrier struct {
	msg *primitive.Message
}

func (c messageCarrier) Get(key string) string {
	return c.msg.GetProperty(key)
}

func (c messageCarrier) Set(key, value string) {
	c.msg.WithProperty(key, value)
}

func (c messageCarrier) Keys() []string {
	props := c.msg.GetProperties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	return keys
}
