package rocketmq

import (
	"context"
	"time"

	rmq "github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

// producerClient 生产者依赖的 SDK 能力.
type producerClient interface {
	Start() error
	Shutdown() error
	SendSync(ctx context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error)
}

// consumerClient 推模式消费者依赖的 SDK 能力.
type consumerClient interface {
	Start() error
	Shutdown() error
	Subscribe(topic string, selector consumer.MessageSelector,
		f func(context.Context, ...*primitive.MessageExt) (consumer.ConsumeResult, error)) error
}

// producerSettings 创建 SDK 生产者所需的参数.
type producerSettings struct {
	nameServers []string
	group       string
	instance    string
	credentials primitive.Credentials
	selector    producer.QueueSelector
}

// consumerSettings 创建 SDK 推模式消费者所需的参数.
type consumerSettings struct {
	nameServers   []string
	group         string
	instance      string
	credentials   primitive.Credentials
	model         *consumer.MessageModel
	fromWhere     consumer.ConsumeFromWhere
	timestamp     string
	pullBatchSize int32
	batchMaxSize  int
	pullInterval  time.Duration
	goroutineNums int
	orderly       bool
}

type (
	producerFactory func(settings producerSettings) (producerClient, error)
	consumerFactory func(settings consumerSettings) (consumerClient, error)
)

// newSDKProducer 使用 rocketmq-client-go 创建生产者.
func newSDKProducer(s producerSettings) (producerClient, error) {
	opts := []producer.Option{
		producer.WithNsResolver(primitive.NewPassthroughResolver(s.nameServers)),
		producer.WithGroupName(s.group),
		producer.WithInstanceName(s.instance),
		producer.WithQueueSelector(s.selector),
	}
	if s.credentials.AccessKey != "" {
		opts = append(opts, producer.WithCredentials(s.credentials))
	}
	return rmq.NewProducer(opts...)
}

// newSDKConsumer 使用 rocketmq-client-go 创建推模式消费者.
func newSDKConsumer(s consumerSettings) (consumerClient, error) {
	opts := []consumer.Option{
		consumer.WithNsResolver(primitive.NewPassthroughResolver(s.nameServers)),
		consumer.WithGroupName(s.group),
		consumer.WithInstance(s.instance),
		consumer.WithConsumeFromWhere(s.fromWhere),
		consumer.WithPullBatchSize(s.pullBatchSize),
		consumer.WithConsumeMessageBatchMaxSize(s.batchMaxSize),
		consumer.WithPullInterval(s.pullInterval),
		consumer.WithConsumeGoroutineNums(s.goroutineNums),
		consumer.WithConsumerOrder(s.orderly),
	}
	if s.model != nil {
		opts = append(opts, consumer.WithConsumerModel(*s.model))
	}
	if s.timestamp != "" {
		opts = append(opts, consumer.WithConsumeTimestamp(s.timestamp))
	}
	if s.credentials.AccessKey != "" {
		opts = append(opts, consumer.WithCredentials(s.credentials))
	}
	return rmq.NewPushConsumer(opts...)
}

// credentials 从配置构造 ACL 凭证.
func credentials(cfg *Config) primitive.Credentials {
	return primitive.Credentials{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	}
}

// messageModel 解析消息模型，无法识别时返回 nil 使用 SDK 默认值.
func messageModel(name string) *consumer.MessageModel {
	var model consumer.MessageModel
	switch name {
	case MessageModelClustering:
		model = consumer.Clustering
	case MessageModelBroadcasting:
		model = consumer.BroadCasting
	default:
		return nil
	}
	return &model
}

// sendStatusName 返回发送状态名称，用于日志和指标.
func sendStatusName(status primitive.SendStatus) string {
	switch status {
	case primitive.SendOK:
		return "SEND_OK"
	case primitive.SendFlushDiskTimeout:
		return "FLUSH_DISK_TIMEOUT"
	case primitive.SendFlushSlaveTimeout:
		return "FLUSH_SLAVE_TIMEOUT"
	case primitive.SendSlaveNotAvailable:
		return "SLAVE_NOT_AVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}
