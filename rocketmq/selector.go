package rocketmq

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

// QueueSelector 按调用方参数选择发送队列，常用于顺序消息.
type QueueSelector interface {
	Select(msg *primitive.Message, queues []*primitive.MessageQueue, arg any) *primitive.MessageQueue
}

// QueueSelectorFunc 函数形式的 QueueSelector.
type QueueSelectorFunc func(msg *primitive.Message, queues []*primitive.MessageQueue, arg any) *primitive.MessageQueue

// Select 实现 QueueSelector.
func (f QueueSelectorFunc) Select(msg *primitive.Message, queues []*primitive.MessageQueue, arg any) *primitive.MessageQueue {
	return f(msg, queues, arg)
}

// HashQueueSelector 按参数哈希选择队列，相同参数总是落在同一队列.
func HashQueueSelector() QueueSelector {
	return QueueSelectorFunc(func(_ *primitive.Message, queues []*primitive.MessageQueue, arg any) *primitive.MessageQueue {
		if len(queues) == 0 {
			return nil
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(fmt.Sprint(arg)))
		return queues[h.Sum32()%uint32(len(queues))]
	})
}

// selection 单次发送登记的选择器与参数.
type selection struct {
	selector QueueSelector
	arg      any
}

// dispatchSelector 交给 SDK 的队列选择器.
//
// SDK 生产者只能配置一个全局选择器，SendSelect 在发送前按消息指针登记本次的
// 选择器和参数，发送结束后注销；未登记的消息使用轮询选择.
type dispatchSelector struct {
	pending  sync.Map // *primitive.Message -> selection
	fallback producer.QueueSelector
}

var _ producer.QueueSelector = (*dispatchSelector)(nil)

func newDispatchSelector() *dispatchSelector {
	return &dispatchSelector{fallback: producer.NewRoundRobinQueueSelector()}
}

// Select 实现 producer.QueueSelector.
//
// lastBrokerName 为 SDK 重试时上一次失败的 Broker，原样交给轮询选择器以避开该 Broker.
func (d *dispatchSelector) Select(msg *primitive.Message, queues []*primitive.MessageQueue, lastBrokerName string) *primitive.MessageQueue {
	if v, ok := d.pending.Load(msg); ok {
		sel := v.(selection)
		if mq := sel.selector.Select(msg, queues, sel.arg); mq != nil {
			return mq
		}
	}
	return d.fallback.Select(msg, queues, lastBrokerName)
}

// register 登记消息的选择器，返回注销函数.
func (d *dispatchSelector) register(msg *primitive.Message, selector QueueSelector, arg any) func() {
	d.pending.Store(msg, selection{selector: selector, arg: arg})
	return func() { d.pending.Delete(msg) }
}
