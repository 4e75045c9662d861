package rocketmq

import "errors"

// 预定义错误.
//
// 所有错误均可通过 errors.Is 进行判断，底层原因通过 errors.Join 附加:
//
//	if errors.Is(err, rocketmq.ErrStart) {
//	    // 客户端启动失败
//	}
var (
	// ErrInvalidConfig 配置无效，NameServer 或 GroupName 为空.
	ErrInvalidConfig = errors.New("rocketmq: 配置无效，nameServer 和 groupName 不能为空")

	// ErrUnsupportedListener 不支持的消息监听器.
	ErrUnsupportedListener = errors.New("rocketmq: 不支持的消息监听器")

	// ErrCreateClient 创建客户端失败.
	ErrCreateClient = errors.New("rocketmq: 创建客户端失败")

	// ErrStart 启动客户端失败.
	ErrStart = errors.New("rocketmq: 启动客户端失败")

	// ErrShutdown 关闭客户端失败.
	ErrShutdown = errors.New("rocketmq: 关闭客户端失败")

	// ErrNilMessage 消息为空.
	ErrNilMessage = errors.New("rocketmq: 消息为空")

	// ErrNoTopic 消息未指定主题且未配置默认主题.
	ErrNoTopic = errors.New("rocketmq: 消息未指定主题")

	// ErrMessageTooLarge 消息体超过 MaxMessageSize.
	ErrMessageTooLarge = errors.New("rocketmq: 消息体过大")

	// ErrProducerNotStarted 生产者未启动.
	ErrProducerNotStarted = errors.New("rocketmq: 生产者未启动")

	// ErrSendMessage 消息发送失败.
	ErrSendMessage = errors.New("rocketmq: 消息发送失败")
)
