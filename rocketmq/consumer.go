package rocketmq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/rocketmq-kit/logger"
	"github.com/Tsukikage7/rocketmq-kit/metrics"
)

// ConsumerOption 消费者配置选项.
type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	logger    logger.Logger
	collector *metrics.PrometheusCollector
	tracing   string
	timestamp string
	factory   consumerFactory
}

// WithConsumerLogger 设置日志记录器.
func WithConsumerLogger(log logger.Logger) ConsumerOption {
	return func(o *consumerOptions) {
		o.logger = log
	}
}

// WithConsumerMetrics 启用 Prometheus 指标.
func WithConsumerMetrics(collector *metrics.PrometheusCollector) ConsumerOption {
	return func(o *consumerOptions) {
		o.collector = collector
	}
}

// WithConsumerTracing 启用链路追踪.
//
// 每次回调创建 rocketmq.consume span，父上下文从第一条消息的属性中提取.
func WithConsumerTracing(serviceName string) ConsumerOption {
	return func(o *consumerOptions) {
		o.tracing = serviceName
	}
}

// WithConsumeFromTimestamp 新消费者组从指定时间点开始消费.
//
// 时间格式为 yyyyMMddHHmmss，例如 20240101080000. 未设置时从最新位点开始消费.
func WithConsumeFromTimestamp(timestamp string) ConsumerOption {
	return func(o *consumerOptions) {
		o.timestamp = timestamp
	}
}

// withConsumerFactory 替换 SDK 消费者的创建方式.
func withConsumerFactory(factory consumerFactory) ConsumerOption {
	return func(o *consumerOptions) {
		o.factory = factory
	}
}

// Consumer RocketMQ 推模式消费者.
//
// 监听器在创建时确定，拉取、分发、确认、重试和位点提交全部由 SDK 完成.
// Load 总是先关闭已有实例再重建，可在配置变更后调用实现热加载.
//
// 示例:
//
//	c, err := rocketmq.NewConsumer(cfg, rocketmq.ConcurrentListener(
//	    func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
//	        for _, msg := range msgs {
//	            handle(msg.Body)
//	        }
//	        return consumer.ConsumeSuccess, nil
//	    },
//	), rocketmq.WithConsumerLogger(log))
//	if err != nil {
//	    return err
//	}
//	if err := c.Init(); err != nil {
//	    return err
//	}
//	defer c.Shutdown()
type Consumer struct {
	mu       sync.RWMutex
	cfg      *Config
	active   *Config
	listener Listener
	client   consumerClient
	state    State

	logger    logger.Logger
	metrics   *clientMetrics
	tracer    *clientTracer
	timestamp string
	factory   consumerFactory
}

var _ Lifecycle = (*Consumer)(nil)

// NewConsumer 创建消费者.
//
// 仅校验配置和监听器，调用 Init 后才会订阅主题并开始消费.
// NameServer 或 GroupName 为空时返回 ErrInvalidConfig；
// 监听器为零值或回调为 nil 时返回 ErrUnsupportedListener.
func NewConsumer(cfg *Config, listener Listener, opts ...ConsumerOption) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := listener.resolve(); err != nil {
		return nil, err
	}

	options := &consumerOptions{factory: newSDKConsumer}
	for _, opt := range opts {
		opt(options)
	}

	c := &Consumer{
		cfg:       cfg.Clone(),
		listener:  listener,
		logger:    options.logger,
		metrics:   newClientMetrics(options.collector),
		timestamp: options.timestamp,
		factory:   options.factory,
	}
	c.cfg.ApplyDefaults()
	if c.logger == nil {
		c.logger = logger.NewNop()
	}
	if options.tracing != "" {
		c.tracer = newClientTracer(options.tracing)
	}
	return c, nil
}

// Name 返回组件名称.
func (c *Consumer) Name() string {
	return "rocketmq-consumer"
}

// Init 初始化消费者，等同于 Load.
func (c *Consumer) Init() error {
	return c.Load()
}

// Load 销毁当前 SDK 消费者（如存在）并按最新配置重建.
//
// 执行顺序：
//  1. 校验监听器，不支持时返回 ErrUnsupportedListener，不创建实例也不订阅
//  2. 关闭已有实例
//  3. 创建 SDK 推模式消费者并设置参数
//  4. 按配置顺序订阅主题，某个主题订阅失败时记录日志并放弃后续订阅
//  5. 启动，失败时返回 ErrStart 且不保留实例
func (c *Consumer) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.cfg.Clone()
	log := c.logger.With(logger.String("group", cfg.GroupName))

	orderly, err := c.listener.resolve()
	if err != nil {
		log.With(logger.String("listener", c.listener.Kind().String())).Error("[RocketMQ] 不支持的消息监听器")
		return err
	}

	if c.client != nil {
		_ = c.stopLocked(log)
	}
	c.active = cfg

	c.setStateLocked(cfg.GroupName, StateStarting)
	c.metrics.RecordReload(roleConsumer, cfg.GroupName)

	model := messageModel(cfg.MessageModel)
	if model == nil && cfg.MessageModel != "" {
		log.Debugf("[RocketMQ] 忽略无法识别的消息模型: %s", cfg.MessageModel)
	}

	settings := consumerSettings{
		nameServers:   cfg.NameServerAddrs(),
		group:         cfg.GroupName,
		instance:      uuid.NewString(),
		credentials:   credentials(cfg),
		model:         model,
		fromWhere:     consumer.ConsumeFromLastOffset,
		pullBatchSize: int32(cfg.FetchSize),
		batchMaxSize:  cfg.ConsumeBatchMaxSize,
		pullInterval:  cfg.PullInterval,
		goroutineNums: cfg.ConsumeThreadMax,
		orderly:       orderly,
	}
	if c.timestamp != "" {
		settings.fromWhere = consumer.ConsumeFromTimestamp
		settings.timestamp = c.timestamp
	}

	client, err := c.factory(settings)
	if err != nil {
		return c.startFailedLocked(log, cfg, errors.Join(ErrStart, ErrCreateClient, err))
	}

	handler := c.wrap(cfg.GroupName, c.listener.fn)
	topics := cfg.ParsedTopics()
	for _, sub := range topics {
		selector := consumer.MessageSelector{Type: consumer.TAG, Expression: sub.Expression}
		if err := client.Subscribe(sub.Topic, selector, handler); err != nil {
			log.With(
				logger.String("topic", sub.Topic),
				logger.String("expression", sub.Expression),
				logger.Err(err),
			).Error("[RocketMQ] 订阅主题失败")
			break
		}
	}

	if err := client.Start(); err != nil {
		return c.startFailedLocked(log, cfg, errors.Join(ErrStart, err))
	}

	c.client = client
	c.setStateLocked(cfg.GroupName, StateRunning)

	log.Infof("[RocketMQ] 消费者启动: nameServer=%s, topics=%v, listener=%s, threads=%d-%d",
		cfg.NameServer, topics.Names(), c.listener.Kind(), cfg.ConsumeThreadMin, cfg.ConsumeThreadMax)
	return nil
}

// wrap 为监听器附加追踪与指标.
func (c *Consumer) wrap(group string, fn ConsumeFunc) ConsumeFunc {
	if c.tracer == nil && c.metrics == nil {
		return fn
	}
	return func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		startTime := time.Now()
		topic := ""
		if len(msgs) > 0 && msgs[0] != nil {
			topic = msgs[0].Topic
		}

		var span trace.Span
		if c.tracer != nil {
			ctx, span = c.tracer.startConsumeSpan(ctx, msgs, group)
			defer span.End()
		}

		result, err := fn(ctx, msgs...)
		if err != nil || result != consumer.ConsumeSuccess {
			if c.tracer != nil {
				c.tracer.setError(span, err)
			}
			c.metrics.RecordConsumeError(topic, group)
		} else {
			c.metrics.RecordConsume(topic, group, len(msgs), time.Since(startTime))
		}
		return result, err
	}
}

// Shutdown 关闭消费者.
//
// 没有存活实例时直接返回 nil. 无论关闭是否成功都会释放实例，
// 关闭失败时记录日志并返回 ErrShutdown.
func (c *Consumer) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	return c.stopLocked(c.logger.With(logger.String("group", c.active.GroupName)))
}

// Topics 返回当前配置的订阅主题.
func (c *Consumer) Topics() Topics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active != nil {
		return c.active.ParsedTopics()
	}
	return c.cfg.ParsedTopics()
}

// Config 返回配置副本.
func (c *Consumer) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Clone()
}

// SetConfig 替换配置，在下一次 Load 时生效.
func (c *Consumer) SetConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	next := cfg.Clone()
	next.ApplyDefaults()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = next
	return nil
}

// State 返回生命周期状态.
func (c *Consumer) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// stopLocked 关闭并释放当前实例，调用方需持有写锁.
func (c *Consumer) stopLocked(log logger.Logger) error {
	client := c.client
	c.client = nil
	c.setStateLocked(c.active.GroupName, StateStopped)

	if err := client.Shutdown(); err != nil {
		log.With(logger.Err(err)).Error("[RocketMQ] 消费者关闭失败")
		return errors.Join(ErrShutdown, err)
	}
	log.Info("[RocketMQ] 消费者已关闭")
	return nil
}

func (c *Consumer) startFailedLocked(log logger.Logger, cfg *Config, err error) error {
	c.setStateLocked(cfg.GroupName, StateUninitialized)
	c.metrics.RecordStartError(roleConsumer, cfg.GroupName)
	log.With(logger.Err(err)).Errorf("[RocketMQ] 消费者启动失败: nameServer=%s", cfg.NameServer)
	return err
}

func (c *Consumer) setStateLocked(group string, state State) {
	c.state = state
	c.metrics.RecordState(roleConsumer, group, state)
}
