package rocketmq

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tsukikage7/rocketmq-kit/config"
)

// 默认配置值.
const (
	DefaultMaxMessageSize      = 1024 * 1024
	DefaultConsumeThreadMin    = 20
	DefaultConsumeThreadMax    = 64
	DefaultFetchSize           = 10
	DefaultConsumeBatchMaxSize = 1
)

// 消息模型名称，与 MessageModel 配置项取值一致.
const (
	MessageModelClustering   = "CLUSTERING"
	MessageModelBroadcasting = "BROADCASTING"
)

// Config RocketMQ 连接与调优配置.
//
// 生产者和消费者共用同一份配置结构，各自只读取自己需要的字段.
// 组件内部持有配置副本，每次 Load 都基于当时的快照重建底层客户端.
//
// 示例:
//
//	cfg := rocketmq.DefaultConfig()
//	cfg.NameServer = "10.0.0.1:9876;10.0.0.2:9876"
//	cfg.GroupName = "order-group"
//	cfg.Topics = "orders:created||paid,refunds"
type Config struct {
	// NameServer NameServer 地址列表，多个地址用分号隔开.
	// 例：172.0.0.1:9876;172.0.0.2:9876
	NameServer string `json:"name_server" yaml:"name_server" mapstructure:"name_server"`

	// GroupName 生产者组或消费者组名称，必填.
	GroupName string `json:"group_name" yaml:"group_name" mapstructure:"group_name"`

	// Topics 主题及标签，支持多个主题，例：topic1:tag1||tag2,topic2
	Topics string `json:"topics" yaml:"topics" mapstructure:"topics"`

	// MessageModel 消息模型：CLUSTERING 或 BROADCASTING.
	// 为空或无法识别时使用 SDK 默认值（集群消费）.
	MessageModel string `json:"message_model" yaml:"message_model" mapstructure:"message_model"`

	// MaxMessageSize 客户端限制的消息体大小（字节），超过时拒绝发送.
	MaxMessageSize int `json:"max_message_size" yaml:"max_message_size" mapstructure:"max_message_size"`

	// ConsumeThreadMin 消费线程池最小数量.
	ConsumeThreadMin int `json:"consume_thread_min" yaml:"consume_thread_min" mapstructure:"consume_thread_min"`

	// ConsumeThreadMax 消费线程池最大数量，对应 SDK 的消费 goroutine 数.
	ConsumeThreadMax int `json:"consume_thread_max" yaml:"consume_thread_max" mapstructure:"consume_thread_max"`

	// FetchSize 批量拉消息，一次最多拉多少条.
	FetchSize int `json:"fetch_size" yaml:"fetch_size" mapstructure:"fetch_size"`

	// ConsumeBatchMaxSize 批量消费，一次回调最多多少条消息.
	ConsumeBatchMaxSize int `json:"consume_batch_max_size" yaml:"consume_batch_max_size" mapstructure:"consume_batch_max_size"`

	// PullInterval 拉消息间隔. 长轮询时为 0，启用流控时可设置大于 0 的值.
	PullInterval time.Duration `json:"pull_interval" yaml:"pull_interval" mapstructure:"pull_interval"`

	// AccessKey/SecretKey 开启 ACL 时的访问凭证.
	AccessKey string `json:"access_key" yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key" mapstructure:"secret_key"`
}

var _ config.Validatable = (*Config)(nil)

// DefaultConfig 返回填充了默认值的配置，NameServer 与 GroupName 需调用方设置.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置（小于等于 0）的数值项填充默认值.
func (c *Config) ApplyDefaults() {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.ConsumeThreadMin <= 0 {
		c.ConsumeThreadMin = DefaultConsumeThreadMin
	}
	if c.ConsumeThreadMax <= 0 {
		c.ConsumeThreadMax = DefaultConsumeThreadMax
	}
	if c.FetchSize <= 0 {
		c.FetchSize = DefaultFetchSize
	}
	if c.ConsumeBatchMaxSize <= 0 {
		c.ConsumeBatchMaxSize = DefaultConsumeBatchMaxSize
	}
	if c.PullInterval < 0 {
		c.PullInterval = 0
	}
}

// Validate 校验必填项.
//
// NameServer 或 GroupName 为空白时返回 ErrInvalidConfig.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Join(ErrInvalidConfig, errors.New("config is nil"))
	}
	if strings.TrimSpace(c.NameServer) == "" || strings.TrimSpace(c.GroupName) == "" {
		return errors.Join(ErrInvalidConfig,
			fmt.Errorf("nameServer=%q, groupName=%q", c.NameServer, c.GroupName))
	}
	return nil
}

// NameServerAddrs 将 NameServer 按分号拆分为地址列表.
func (c *Config) NameServerAddrs() []string {
	parts := strings.Split(c.NameServer, ";")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			addrs = append(addrs, p)
		}
	}
	return addrs
}

// ParsedTopics 解析 Topics 字段，每次调用重新计算.
func (c *Config) ParsedTopics() Topics {
	return ParseTopics(c.Topics)
}

// Clone 返回配置副本.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ConfigOptions 返回加载 Config 使用的默认选项，调用方的选项应追加在其后.
//
// 以 ROCKETMQ_ 为前缀的环境变量覆盖文件中的值，例如 ROCKETMQ_NAME_SERVER.
// 文件监听重新加载时必须使用相同的选项，否则通过环境变量提供的凭证会在首次变更后丢失.
func ConfigOptions(opts ...config.Option) []config.Option {
	return append([]config.Option{
		config.WithEnvPrefix("ROCKETMQ"),
		config.WithBindEnv("name_server", "group_name", "topics", "message_model", "access_key", "secret_key"),
	}, opts...)
}

// LoadConfig 从文件加载配置并应用默认值.
//
// 支持以 ROCKETMQ_ 为前缀的环境变量覆盖，例如 ROCKETMQ_NAME_SERVER.
func LoadConfig(path string, opts ...config.Option) (*Config, error) {
	cfg, err := config.Load[Config](path, ConfigOptions(opts...)...)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
