package rocketmq

import (
	"testing"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/stretchr/testify/assert"
)

func testQueues(n int) []*primitive.MessageQueue {
	queues := make([]*primitive.MessageQueue, n)
	for i := range queues {
		queues[i] = &primitive.MessageQueue{Topic: "orders", BrokerName: "broker-a", QueueId: i}
	}
	return queues
}

func TestHashQueueSelector(t *testing.T) {
	selector := HashQueueSelector()
	queues := testQueues(8)
	msg := primitive.NewMessage("orders", nil)

	first := selector.Select(msg, queues, "order-1")
	assert.NotNil(t, first)
	for range 10 {
		assert.Same(t, first, selector.Select(msg, queues, "order-1"))
	}
	assert.Nil(t, selector.Select(msg, nil, "order-1"))
}

func TestDispatchSelector(t *testing.T) {
	d := newDispatchSelector()
	queues := testQueues(4)
	msg := primitive.NewMessage("orders", nil)

	last := QueueSelectorFunc(func(_ *primitive.Message, mqs []*primitive.MessageQueue, arg any) *primitive.MessageQueue {
		assert.Equal(t, "key", arg)
		return mqs[len(mqs)-1]
	})

	unregister := d.register(msg, last, "key")
	assert.Equal(t, 3, d.Select(msg, queues, "").QueueId)
	assert.Equal(t, 3, d.Select(msg, queues, "").QueueId)

	unregister()
	seen := make(map[int]bool)
	for range 4 {
		seen[d.Select(msg, queues, "").QueueId] = true
	}
	assert.Len(t, seen, 4, "注销后使用轮询选择")
}

func TestDispatchSelector_NilFromSelectorFallsBack(t *testing.T) {
	d := newDispatchSelector()
	queues := testQueues(2)
	msg := primitive.NewMessage("orders", nil)

	none := QueueSelectorFunc(func(*primitive.Message, []*primitive.MessageQueue, any) *primitive.MessageQueue {
		return nil
	})
	defer d.register(msg, none, nil)()

	assert.NotNil(t, d.Select(msg, queues, ""))
}

func TestDispatchSelector_ImplementsSDKSelector(t *testing.T) {
	var sdk producer.QueueSelector = newDispatchSelector()
	queues := testQueues(2)
	msg := primitive.NewMessage("orders", nil)

	assert.NotNil(t, sdk.Select(msg, queues, "broker-b"), "重试时传入上次失败的 Broker")
}
