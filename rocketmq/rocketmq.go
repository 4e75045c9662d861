// Package rocketmq 提供 RocketMQ 生产者与推模式消费者的配置和生命周期管理.
//
// 网络通信、投递、确认、重试和位点管理全部由
// github.com/apache/rocketmq-client-go/v2 完成；本包负责校验配置、解析主题、
// 设置 SDK 参数，并保证启动和关闭顺序安全.
//
// 基本用法:
//
//	cfg := rocketmq.DefaultConfig()
//	cfg.NameServer = "127.0.0.1:9876"
//	cfg.GroupName = "order-producer"
//	cfg.Topics = "orders"
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
//	result, err := p.Send(ctx, primitive.NewMessage("", body))
package rocketmq

// Lifecycle 可加载、可关闭的组件.
//
// Load 总是销毁并重建底层客户端，用于配置变更后的重新加载.
type Lifecycle interface {
	Init() error
	Load() error
	Shutdown() error
}

// State 客户端生命周期状态.
type State int32

const (
	// StateUninitialized 未初始化或启动失败.
	StateUninitialized State = iota
	// StateStarting 正在创建并启动客户端.
	StateStarting
	// StateRunning 客户端运行中.
	StateRunning
	// StateStopped 客户端已关闭.
	StateStopped
)

// String 返回状态名称.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// 客户端角色，用于日志和指标标签.
const (
	roleProducer = "producer"
	roleConsumer = "consumer"
)
