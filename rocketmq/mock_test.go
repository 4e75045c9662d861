package rocketmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"

	"github.com/Tsukikage7/rocketmq-kit/logger"
)

// mockLogger 记录各级别日志调用的模拟日志器.
type mockLogger struct {
	mu       sync.Mutex
	debugs   []string
	infos    []string
	warns    []string
	errors   []string
	fields   []logger.Field
	parentOf *mockLogger
}

func (m *mockLogger) root() *mockLogger {
	if m.parentOf != nil {
		return m.parentOf
	}
	return m
}

func (m *mockLogger) record(dst *[]string, msg string) {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	*dst = append(*dst, msg)
}

func (m *mockLogger) Debug(args ...any)                 { m.record(&m.root().debugs, fmt.Sprint(args...)) }
func (m *mockLogger) Debugf(format string, args ...any) { m.record(&m.root().debugs, fmt.Sprintf(format, args...)) }
func (m *mockLogger) Info(args ...any)                  { m.record(&m.root().infos, fmt.Sprint(args...)) }
func (m *mockLogger) Infof(format string, args ...any)  { m.record(&m.root().infos, fmt.Sprintf(format, args...)) }
func (m *mockLogger) Warn(args ...any)                  { m.record(&m.root().warns, fmt.Sprint(args...)) }
func (m *mockLogger) Warnf(format string, args ...any)  { m.record(&m.root().warns, fmt.Sprintf(format, args...)) }
func (m *mockLogger) Error(args ...any)                 { m.record(&m.root().errors, fmt.Sprint(args...)) }
func (m *mockLogger) Errorf(format string, args ...any) { m.record(&m.root().errors, fmt.Sprintf(format, args...)) }
func (m *mockLogger) Fatal(args ...any)                 {}
func (m *mockLogger) Fatalf(format string, args ...any) {}
func (m *mockLogger) Sync() error                       { return nil }
func (m *mockLogger) Close() error                      { return nil }

func (m *mockLogger) With(fields ...logger.Field) logger.Logger {
	r := m.root()
	r.mu.Lock()
	r.fields = append(r.fields, fields...)
	r.mu.Unlock()
	return &mockLogger{parentOf: r}
}

func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

func (m *mockLogger) count(level string) int {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	switch level {
	case "debug":
		return len(r.debugs)
	case "info":
		return len(r.infos)
	case "warn":
		return len(r.warns)
	case "error":
		return len(r.errors)
	}
	return 0
}

// fakeProducer 模拟 SDK 生产者.
type fakeProducer struct {
	mu          sync.Mutex
	settings    producerSettings
	startErr    error
	shutdownErr error
	sendErr     error
	status      primitive.SendStatus
	queues      []*primitive.MessageQueue

	started  bool
	shutdown bool
	sent     []*primitive.Message
	selected []*primitive.MessageQueue
}

func (f *fakeProducer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeProducer) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return f.shutdownErr
}

// SendSync 与 SDK 一样通过配置的 QueueSelector 选择队列.
func (f *fakeProducer) SendSync(_ context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	msg := msgs[0]
	f.sent = append(f.sent, msg)

	var mq *primitive.MessageQueue
	if f.settings.selector != nil && len(f.queues) > 0 {
		mq = f.settings.selector.Select(msg, f.queues, "")
		f.selected = append(f.selected, mq)
	}
	return &primitive.SendResult{
		Status:       f.status,
		MsgID:        fmt.Sprintf("msg-%d", len(f.sent)),
		MessageQueue: mq,
	}, nil
}

func (f *fakeProducer) isShutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown
}

// producerRecorder 记录工厂创建的所有生产者.
type producerRecorder struct {
	mu        sync.Mutex
	created   []*fakeProducer
	createErr error
	prepare   func(*fakeProducer)
}

func (r *producerRecorder) factory(settings producerSettings) (producerClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	p := &fakeProducer{settings: settings}
	if r.prepare != nil {
		r.prepare(p)
	}
	r.created = append(r.created, p)
	return p, nil
}

func (r *producerRecorder) last() *fakeProducer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.created) == 0 {
		return nil
	}
	return r.created[len(r.created)-1]
}

// subscription 记录一次订阅.
type subscription struct {
	topic    string
	selector consumer.MessageSelector
	handler  func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error)
}

// fakeConsumer 模拟 SDK 推模式消费者.
type fakeConsumer struct {
	mu           sync.Mutex
	settings     consumerSettings
	startErr     error
	shutdownErr  error
	subscribeErr map[string]error

	started       bool
	shutdown      bool
	subscriptions []subscription
}

func (f *fakeConsumer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeConsumer) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return f.shutdownErr
}

func (f *fakeConsumer) Subscribe(topic string, selector consumer.MessageSelector,
	handler func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.subscribeErr[topic]; err != nil {
		return err
	}
	f.subscriptions = append(f.subscriptions, subscription{topic: topic, selector: selector, handler: handler})
	return nil
}

func (f *fakeConsumer) isShutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown
}

// deliver 模拟 SDK 把消息投递给第一个订阅的回调.
func (f *fakeConsumer) deliver(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	f.mu.Lock()
	handler := f.subscriptions[0].handler
	f.mu.Unlock()
	return handler(ctx, msgs...)
}

// consumerRecorder 记录工厂创建的所有消费者.
type consumerRecorder struct {
	mu        sync.Mutex
	created   []*fakeConsumer
	createErr error
	prepare   func(*fakeConsumer)
}

func (r *consumerRecorder) factory(settings consumerSettings) (consumerClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	c := &fakeConsumer{settings: settings}
	if r.prepare != nil {
		r.prepare(c)
	}
	r.created = append(r.created, c)
	return c, nil
}

func (r *consumerRecorder) all() []*fakeConsumer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeConsumer(nil), r.created...)
}

func (r *consumerRecorder) last() *fakeConsumer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.created) == 0 {
		return nil
	}
	return r.created[len(r.created)-1]
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.NameServer = "127.0.0.1:9876"
	cfg.GroupName = "test-group"
	return cfg
}

func successListener() Listener {
	return ConcurrentListener(func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		return consumer.ConsumeSuccess, nil
	})
}
