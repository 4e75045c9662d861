package rocketmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/rocketmq-kit/logger"
	"github.com/Tsukikage7/rocketmq-kit/metrics"
)

// ProducerOption 生产者配置选项.
type ProducerOption func(*producerOptions)

type producerOptions struct {
	logger    logger.Logger
	collector *metrics.PrometheusCollector
	tracing   string
	factory   producerFactory
}

// WithProducerLogger 设置日志记录器.
//
// 未设置时不输出日志.
func WithProducerLogger(log logger.Logger) ProducerOption {
	return func(o *producerOptions) {
		o.logger = log
	}
}

// WithProducerMetrics 启用 Prometheus 指标.
//
// 记录发送数量、发送耗时、发送错误、客户端重建和状态.
func WithProducerMetrics(collector *metrics.PrometheusCollector) ProducerOption {
	return func(o *producerOptions) {
		o.collector = collector
	}
}

// WithProducerTracing 启用链路追踪.
//
// 发送时创建 rocketmq.send span，并将追踪上下文写入消息属性.
func WithProducerTracing(serviceName string) ProducerOption {
	return func(o *producerOptions) {
		o.tracing = serviceName
	}
}

// withProducerFactory 替换 SDK 生产者的创建方式.
func withProducerFactory(factory producerFactory) ProducerOption {
	return func(o *producerOptions) {
		o.factory = factory
	}
}

// Producer RocketMQ 同步生产者.
//
// 持有至多一个 SDK 生产者实例. Load 与 Shutdown 持有写锁，Send 在整个发送期间
// 持有读锁，因此重新加载会等待进行中的发送完成，任何时刻都不会存在两个存活实例.
//
// 示例:
//
//	p, err := rocketmq.NewProducer(cfg, rocketmq.WithProducerLogger(log))
//	if err != nil {
//	    return err
//	}
//	if err := p.Init(); err != nil {
//	    return err
//	}
//	defer p.Shutdown()
//
//	msg := primitive.NewMessage("", []byte(`{"id":"123"}`))
//	msg.WithTag("created")
//	result, err := p.Send(ctx, msg)
type Producer struct {
	mu       sync.RWMutex
	cfg      *Config
	active   *Config
	topics   Topics
	client   producerClient
	selector *dispatchSelector
	state    State

	logger  logger.Logger
	metrics *clientMetrics
	tracer  *clientTracer
	factory producerFactory
}

var _ Lifecycle = (*Producer)(nil)

// NewProducer 创建生产者.
//
// 仅校验配置，不连接服务器；调用 Init 后才会创建并启动 SDK 生产者.
// NameServer 或 GroupName 为空时返回 ErrInvalidConfig.
func NewProducer(cfg *Config, opts ...ProducerOption) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &producerOptions{factory: newSDKProducer}
	for _, opt := range opts {
		opt(options)
	}

	p := &Producer{
		cfg:     cfg.Clone(),
		logger:  options.logger,
		metrics: newClientMetrics(options.collector),
		factory: options.factory,
	}
	p.cfg.ApplyDefaults()
	p.topics = p.cfg.ParsedTopics()
	if p.logger == nil {
		p.logger = logger.NewNop()
	}
	if options.tracing != "" {
		p.tracer = newClientTracer(options.tracing)
	}
	return p, nil
}

// Name 返回组件名称.
func (p *Producer) Name() string {
	return "rocketmq-producer"
}

// Init 初始化生产者，等同于 Load.
func (p *Producer) Init() error {
	return p.Load()
}

// Load 销毁当前 SDK 生产者（如存在）并按最新配置重建.
//
// 创建或启动失败时记录日志，生产者回到 StateUninitialized 且不保留实例，
// 返回 ErrStart；此后 Send 返回 ErrProducerNotStarted.
func (p *Producer) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.cfg.Clone()
	log := p.logger.With(logger.String("group", cfg.GroupName))

	if p.client != nil {
		_ = p.stopLocked(log)
	}
	p.active = cfg
	p.topics = cfg.ParsedTopics()

	p.setStateLocked(cfg.GroupName, StateStarting)
	p.metrics.RecordReload(roleProducer, cfg.GroupName)

	selector := newDispatchSelector()
	client, err := p.factory(producerSettings{
		nameServers: cfg.NameServerAddrs(),
		group:       cfg.GroupName,
		instance:    uuid.NewString(),
		credentials: credentials(cfg),
		selector:    selector,
	})
	if err != nil {
		return p.startFailedLocked(log, cfg, errors.Join(ErrStart, ErrCreateClient, err))
	}
	if err := client.Start(); err != nil {
		return p.startFailedLocked(log, cfg, errors.Join(ErrStart, err))
	}

	p.client = client
	p.selector = selector
	p.setStateLocked(cfg.GroupName, StateRunning)

	log.Infof("[RocketMQ] 生产者启动: nameServer=%s, topics=%v", cfg.NameServer, p.topics.Names())
	return nil
}

// Send 同步发送消息.
//
// 消息未指定主题时使用配置中的第一个主题. 发送状态不是 SEND_OK 时记录错误日志，
// 结果仍原样返回，由调用方检查 Status.
func (p *Producer) Send(ctx context.Context, msg *primitive.Message) (*primitive.SendResult, error) {
	return p.send(ctx, msg, nil, nil)
}

// SendSelect 使用队列选择器同步发送消息.
//
// selector 与 arg 仅作用于本次发送，常用于按业务键把消息路由到固定队列以保证顺序.
// selector 为 nil 时与 Send 相同.
func (p *Producer) SendSelect(ctx context.Context, msg *primitive.Message, selector QueueSelector, arg any) (*primitive.SendResult, error) {
	return p.send(ctx, msg, selector, arg)
}

func (p *Producer) send(ctx context.Context, msg *primitive.Message, selector QueueSelector, arg any) (*primitive.SendResult, error) {
	startTime := time.Now()

	if msg == nil {
		return nil, ErrNilMessage
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	group := p.activeLocked().GroupName
	log := p.logger.WithContext(ctx).With(logger.String("group", group))

	if msg.Topic == "" {
		topic, ok := p.topics.First()
		if !ok {
			log.Warn("[RocketMQ] 消息未指定主题，且未配置默认主题，消息被丢弃")
			return nil, ErrNoTopic
		}
		msg.Topic = topic
	}
	log = log.With(logger.String("topic", msg.Topic))

	if limit := p.activeLocked().MaxMessageSize; len(msg.Body) > limit {
		err := fmt.Errorf("%w: size=%d, max=%d", ErrMessageTooLarge, len(msg.Body), limit)
		log.With(logger.Err(err)).Error("[RocketMQ] 消息发送失败")
		p.metrics.RecordSendError(msg.Topic)
		return nil, err
	}

	if p.client == nil {
		log.Error("[RocketMQ] 生产者未启动，消息发送失败")
		p.metrics.RecordSendError(msg.Topic)
		return nil, ErrProducerNotStarted
	}

	var span trace.Span
	if p.tracer != nil {
		ctx, span = p.tracer.startSendSpan(ctx, msg, group)
		defer span.End()
	}

	if selector != nil {
		unregister := p.selector.register(msg, selector, arg)
		defer unregister()
	}

	result, err := p.client.SendSync(ctx, msg)
	if err != nil {
		if p.tracer != nil {
			p.tracer.setError(span, err)
		}
		p.metrics.RecordSendError(msg.Topic)
		log.With(logger.Err(err)).Error("[RocketMQ] 消息发送失败")
		return nil, errors.Join(ErrSendMessage, err)
	}

	status := sendStatusName(result.Status)
	p.metrics.RecordSend(msg.Topic, status, time.Since(startTime))
	if result.Status != primitive.SendOK {
		log.With(
			logger.String("status", status),
			logger.String("msgId", result.MsgID),
		).Error("[RocketMQ] 消息发送状态异常")
		if p.tracer != nil {
			p.tracer.setError(span, errors.New(status))
		}
	}
	return result, nil
}

// Shutdown 关闭生产者.
//
// 没有存活实例时直接返回 nil. 无论关闭是否成功都会释放实例，
// 关闭失败时记录日志并返回 ErrShutdown.
func (p *Producer) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	return p.stopLocked(p.logger.With(logger.String("group", p.active.GroupName)))
}

// Topics 返回当前生效的主题列表.
func (p *Producer) Topics() Topics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append(Topics(nil), p.topics...)
}

// Config 返回配置副本.
func (p *Producer) Config() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Clone()
}

// SetConfig 替换配置，在下一次 Load 时生效.
func (p *Producer) SetConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	next := cfg.Clone()
	next.ApplyDefaults()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = next
	if p.client == nil {
		p.topics = next.ParsedTopics()
	}
	return nil
}

// State 返回生命周期状态.
func (p *Producer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// activeLocked 返回最近一次 Load 使用的配置，尚未加载时返回当前配置.
func (p *Producer) activeLocked() *Config {
	if p.active != nil {
		return p.active
	}
	return p.cfg
}

// stopLocked 关闭并释放当前实例，调用方需持有写锁.
func (p *Producer) stopLocked(log logger.Logger) error {
	client := p.client
	group := p.active.GroupName
	p.client = nil
	p.selector = nil
	p.setStateLocked(group, StateStopped)

	if err := client.Shutdown(); err != nil {
		log.With(logger.Err(err)).Error("[RocketMQ] 生产者关闭失败")
		return errors.Join(ErrShutdown, err)
	}
	log.Info("[RocketMQ] 生产者已关闭")
	return nil
}

func (p *Producer) startFailedLocked(log logger.Logger, cfg *Config, err error) error {
	p.setStateLocked(cfg.GroupName, StateUninitialized)
	p.metrics.RecordStartError(roleProducer, cfg.GroupName)
	log.With(logger.Err(err)).Errorf("[RocketMQ] 生产者启动失败: nameServer=%s", cfg.NameServer)
	return err
}

func (p *Producer) setStateLocked(group string, state State) {
	p.state = state
	p.metrics.RecordState(roleProducer, group, state)
}
