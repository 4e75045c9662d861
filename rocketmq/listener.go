package rocketmq

import (
	"context"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
)

// ConsumeFunc 消息处理函数.
//
// 返回 consumer.ConsumeSuccess 表示消费成功；并发消费返回 consumer.ConsumeRetryLater、
// 顺序消费返回 consumer.SuspendCurrentQueueAMoment 时由 SDK 负责重试.
type ConsumeFunc func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error)

// ListenerKind 监听器类型.
type ListenerKind int

const (
	// ListenerUnknown 未设置监听器.
	ListenerUnknown ListenerKind = iota
	// ListenerConcurrently 并发消费.
	ListenerConcurrently
	// ListenerOrderly 顺序消费，同一队列的消息串行处理.
	ListenerOrderly
)

// String 返回监听器类型名称.
func (k ListenerKind) String() string {
	switch k {
	case ListenerConcurrently:
		return "concurrently"
	case ListenerOrderly:
		return "orderly"
	default:
		return "unknown"
	}
}

// Listener 消息监听器，只能通过 ConcurrentListener 或 OrderlyListener 构造.
type Listener struct {
	kind ListenerKind
	fn   ConsumeFunc
}

// ConcurrentListener 创建并发消费监听器.
func ConcurrentListener(fn ConsumeFunc) Listener {
	return Listener{kind: ListenerConcurrently, fn: fn}
}

// OrderlyListener 创建顺序消费监听器.
func OrderlyListener(fn ConsumeFunc) Listener {
	return Listener{kind: ListenerOrderly, fn: fn}
}

// Kind 返回监听器类型.
func (l Listener) Kind() ListenerKind {
	return l.kind
}

// resolve 校验监听器，返回是否为顺序消费.
func (l Listener) resolve() (orderly bool, err error) {
	if l.fn == nil {
		return false, ErrUnsupportedListener
	}
	switch l.kind {
	case ListenerConcurrently:
		return false, nil
	case ListenerOrderly:
		return true, nil
	default:
		return false, ErrUnsupportedListener
	}
}
