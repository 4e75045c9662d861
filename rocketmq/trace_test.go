package rocketmq

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTracing 安装内存导出器，测试结束后恢复全局设置.
func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	return recorder
}

func TestMessageCarrier(t *testing.T) {
	msg := primitive.NewMessage("orders", nil)
	carrier := messageCarrier{msg: msg}

	carrier.Set("traceparent", "value")
	assert.Equal(t, "value", carrier.Get("traceparent"))
	assert.Equal(t, "value", msg.GetProperty("traceparent"))
	assert.Contains(t, carrier.Keys(), "traceparent")
}

func TestTrace_RoundTripThroughMessageProperties(t *testing.T) {
	spans := setupTracing(t)

	producers := &producerRecorder{}
	p, err := NewProducer(testConfig(),
		WithProducerTracing("order-service"),
		withProducerFactory(producers.factory),
	)
	require.NoError(t, err)
	require.NoError(t, p.Init())

	msg := primitive.NewMessage("orders", []byte("x"))
	_, err = p.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.GetProperty("traceparent"), "追踪上下文写入消息属性")

	consumers := &consumerRecorder{}
	cfg := testConfig()
	cfg.Topics = "orders"
	var handlerSpan trace.SpanContext
	c, err := NewConsumer(cfg, ConcurrentListener(func(ctx context.Context, _ ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		handlerSpan = trace.SpanContextFromContext(ctx)
		return consumer.ConsumeSuccess, nil
	}), WithConsumerTracing("order-service"), withConsumerFactory(consumers.factory))
	require.NoError(t, err)
	require.NoError(t, c.Init())

	ext := &primitive.MessageExt{Message: primitive.Message{Topic: "orders", Body: []byte("x")}, MsgId: "id-1"}
	ext.WithProperties(map[string]string{"traceparent": msg.GetProperty("traceparent")})
	_, err = consumers.last().deliver(context.Background(), ext)
	require.NoError(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	send, consume := ended[0], ended[1]
	assert.Equal(t, "rocketmq.send", send.Name())
	assert.Equal(t, trace.SpanKindProducer, send.SpanKind())
	assert.Equal(t, "rocketmq.consume", consume.Name())
	assert.Equal(t, trace.SpanKindConsumer, consume.SpanKind())

	assert.Equal(t, send.SpanContext().TraceID(), consume.SpanContext().TraceID(), "消费 span 延续发送链路")
	assert.Equal(t, send.SpanContext().SpanID(), consume.Parent().SpanID())
	assert.Equal(t, consume.SpanContext().SpanID(), handlerSpan.SpanID())
}

func TestTrace_SendErrorRecorded(t *testing.T) {
	spans := setupTracing(t)

	recorder := &producerRecorder{prepare: func(f *fakeProducer) { f.sendErr = errors.New("broker busy") }}
	p, err := NewProducer(testConfig(),
		WithProducerTracing("order-service"),
		withProducerFactory(recorder.factory),
	)
	require.NoError(t, err)
	require.NoError(t, p.Init())

	_, err = p.Send(context.Background(), primitive.NewMessage("orders", []byte("x")))
	require.Error(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "broker busy", ended[0].Status().Description)
}
