package rocketmq

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/stretchr/testify/suite"
)

// ProducerTestSuite 生产者测试套件.
type ProducerTestSuite struct {
	suite.Suite
	recorder *producerRecorder
	log      *mockLogger
	ctx      context.Context
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerTestSuite))
}

func (s *ProducerTestSuite) SetupTest() {
	s.recorder = &producerRecorder{}
	s.log = &mockLogger{}
	s.ctx = context.Background()
}

func (s *ProducerTestSuite) newProducer(cfg *Config, opts ...ProducerOption) *Producer {
	opts = append([]ProducerOption{
		WithProducerLogger(s.log),
		withProducerFactory(s.recorder.factory),
	}, opts...)
	p, err := NewProducer(cfg, opts...)
	s.Require().NoError(err)
	return p
}

// === 创建 ===

func (s *ProducerTestSuite) TestNewProducer_InvalidConfig() {
	cases := map[string]*Config{
		"nil":          nil,
		"空 nameServer": {GroupName: "g"},
		"空 groupName":  {NameServer: "127.0.0.1:9876"},
		"空白":           {NameServer: "  ", GroupName: "\t"},
	}
	for name, cfg := range cases {
		_, err := NewProducer(cfg)
		s.ErrorIs(err, ErrInvalidConfig, name)
	}
}

func (s *ProducerTestSuite) TestNewProducer_AppliesDefaultsToCopy() {
	cfg := &Config{NameServer: "127.0.0.1:9876", GroupName: "g"}
	p := s.newProducer(cfg)

	s.Equal(DefaultMaxMessageSize, p.Config().MaxMessageSize)
	s.Zero(cfg.MaxMessageSize, "调用方的配置不应被修改")
	s.Equal(StateUninitialized, p.State())
	s.Equal("rocketmq-producer", p.Name())
}

// === Load ===

func (s *ProducerTestSuite) TestInit_StartsClient() {
	cfg := testConfig()
	cfg.NameServer = "10.0.0.1:9876; 10.0.0.2:9876"
	cfg.AccessKey = "ak"
	cfg.SecretKey = "sk"
	p := s.newProducer(cfg)

	s.Require().NoError(p.Init())

	fake := s.recorder.last()
	s.Require().NotNil(fake)
	s.True(fake.started)
	s.Equal([]string{"10.0.0.1:9876", "10.0.0.2:9876"}, fake.settings.nameServers)
	s.Equal("test-group", fake.settings.group)
	s.NotEmpty(fake.settings.instance)
	s.Equal("ak", fake.settings.credentials.AccessKey)
	s.Equal("sk", fake.settings.credentials.SecretKey)
	s.NotNil(fake.settings.selector)
	s.Equal(StateRunning, p.State())
}

func (s *ProducerTestSuite) TestLoad_TwiceKeepsSingleHandle() {
	p := s.newProducer(testConfig())

	s.Require().NoError(p.Load())
	s.Require().NoError(p.Load())

	s.Require().Len(s.recorder.created, 2)
	first, second := s.recorder.created[0], s.recorder.created[1]
	s.True(first.isShutdown(), "旧实例应在重建前关闭")
	s.False(second.isShutdown())
	s.NotEqual(first.settings.instance, second.settings.instance, "每次加载使用新的实例名")
	s.Equal(StateRunning, p.State())
}

func (s *ProducerTestSuite) TestLoad_ShutdownErrorOfOldHandleIsTolerated() {
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Load())
	s.recorder.last().shutdownErr = errors.New("boom")

	s.Require().NoError(p.Load())
	s.Len(s.recorder.created, 2)
	s.Positive(s.log.count("error"))
}

func (s *ProducerTestSuite) TestLoad_StartFailure() {
	startErr := errors.New("connect refused")
	s.recorder.prepare = func(f *fakeProducer) { f.startErr = startErr }
	p := s.newProducer(testConfig())

	err := p.Init()
	s.ErrorIs(err, ErrStart)
	s.ErrorIs(err, startErr)
	s.Equal(StateUninitialized, p.State())
	s.Positive(s.log.count("error"))

	_, err = p.Send(s.ctx, primitive.NewMessage("orders", []byte("x")))
	s.ErrorIs(err, ErrProducerNotStarted)

	s.NoError(p.Shutdown(), "没有存活实例时关闭是空操作")
}

func (s *ProducerTestSuite) TestLoad_CreateFailure() {
	s.recorder.createErr = errors.New("bad option")
	p := s.newProducer(testConfig())

	err := p.Load()
	s.ErrorIs(err, ErrStart)
	s.ErrorIs(err, ErrCreateClient)
	s.Equal(StateUninitialized, p.State())
}

func (s *ProducerTestSuite) TestSetConfig_TakesEffectOnNextLoad() {
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Load())

	next := testConfig()
	next.GroupName = "next-group"
	s.Require().NoError(p.SetConfig(next))
	s.Equal("test-group", s.recorder.last().settings.group)

	s.Require().NoError(p.Load())
	s.Equal("next-group", s.recorder.last().settings.group)

	s.ErrorIs(p.SetConfig(&Config{}), ErrInvalidConfig)
	s.Equal("next-group", p.Config().GroupName)
}

// === Send ===

func (s *ProducerTestSuite) TestSend_UsesFirstConfiguredTopic() {
	cfg := testConfig()
	cfg.Topics = "t1,t2"
	p := s.newProducer(cfg)
	s.Require().NoError(p.Init())

	msg := primitive.NewMessage("", []byte("hello"))
	result, err := p.Send(s.ctx, msg)
	s.Require().NoError(err)
	s.Equal(primitive.SendOK, result.Status)
	s.Equal("t1", msg.Topic)
}

func (s *ProducerTestSuite) TestSend_KeepsExplicitTopic() {
	cfg := testConfig()
	cfg.Topics = "t1"
	p := s.newProducer(cfg)
	s.Require().NoError(p.Init())

	msg := primitive.NewMessage("explicit", []byte("hello"))
	_, err := p.Send(s.ctx, msg)
	s.Require().NoError(err)
	s.Equal("explicit", msg.Topic)
}

func (s *ProducerTestSuite) TestSend_NoTopic() {
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	result, err := p.Send(s.ctx, primitive.NewMessage("", []byte("hello")))
	s.Nil(result)
	s.ErrorIs(err, ErrNoTopic)
	s.Equal(1, s.log.count("warn"))
	s.Empty(s.recorder.last().sent)
}

func (s *ProducerTestSuite) TestSend_NilMessage() {
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	_, err := p.Send(s.ctx, nil)
	s.ErrorIs(err, ErrNilMessage)
}

func (s *ProducerTestSuite) TestSend_MessageTooLarge() {
	cfg := testConfig()
	cfg.MaxMessageSize = 4
	p := s.newProducer(cfg)
	s.Require().NoError(p.Init())

	_, err := p.Send(s.ctx, primitive.NewMessage("orders", []byte("12345")))
	s.ErrorIs(err, ErrMessageTooLarge)
	s.Empty(s.recorder.last().sent)

	_, err = p.Send(s.ctx, primitive.NewMessage("orders", []byte("1234")))
	s.NoError(err)
}

func (s *ProducerTestSuite) TestSend_NotStarted() {
	p := s.newProducer(testConfig())

	_, err := p.Send(s.ctx, primitive.NewMessage("orders", []byte("x")))
	s.ErrorIs(err, ErrProducerNotStarted)
}

func (s *ProducerTestSuite) TestSend_ClientError() {
	sendErr := errors.New("broker busy")
	s.recorder.prepare = func(f *fakeProducer) { f.sendErr = sendErr }
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	result, err := p.Send(s.ctx, primitive.NewMessage("orders", []byte("x")))
	s.Nil(result)
	s.ErrorIs(err, ErrSendMessage)
	s.ErrorIs(err, sendErr)
	s.Equal(1, s.log.count("error"))
}

func (s *ProducerTestSuite) TestSend_NonOKStatusReturnedWithoutError() {
	s.recorder.prepare = func(f *fakeProducer) { f.status = primitive.SendFlushDiskTimeout }
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	result, err := p.Send(s.ctx, primitive.NewMessage("orders", []byte("x")))
	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.Equal(primitive.SendFlushDiskTimeout, result.Status)
	s.Equal(1, s.log.count("error"))
}

func (s *ProducerTestSuite) TestSendSelect_RoutesByArgument() {
	queues := []*primitive.MessageQueue{
		{Topic: "orders", BrokerName: "b", QueueId: 0},
		{Topic: "orders", BrokerName: "b", QueueId: 1},
		{Topic: "orders", BrokerName: "b", QueueId: 2},
	}
	s.recorder.prepare = func(f *fakeProducer) { f.queues = queues }
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	pick := QueueSelectorFunc(func(_ *primitive.Message, mqs []*primitive.MessageQueue, arg any) *primitive.MessageQueue {
		return mqs[arg.(int)%len(mqs)]
	})

	result, err := p.SendSelect(s.ctx, primitive.NewMessage("orders", []byte("x")), pick, 5)
	s.Require().NoError(err)
	s.Equal(2, result.MessageQueue.QueueId)

	result, err = p.SendSelect(s.ctx, primitive.NewMessage("orders", []byte("y")), pick, 4)
	s.Require().NoError(err)
	s.Equal(1, result.MessageQueue.QueueId)
}

func (s *ProducerTestSuite) TestSendSelect_SameKeySameQueue() {
	queues := []*primitive.MessageQueue{
		{Topic: "orders", QueueId: 0},
		{Topic: "orders", QueueId: 1},
		{Topic: "orders", QueueId: 2},
		{Topic: "orders", QueueId: 3},
	}
	s.recorder.prepare = func(f *fakeProducer) { f.queues = queues }
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	selector := HashQueueSelector()
	first, err := p.SendSelect(s.ctx, primitive.NewMessage("orders", []byte("a")), selector, "order-42")
	s.Require().NoError(err)
	for range 5 {
		result, err := p.SendSelect(s.ctx, primitive.NewMessage("orders", []byte("b")), selector, "order-42")
		s.Require().NoError(err)
		s.Equal(first.MessageQueue.QueueId, result.MessageQueue.QueueId)
	}
}

func (s *ProducerTestSuite) TestSend_WithoutSelectorUsesRoundRobin() {
	queues := []*primitive.MessageQueue{
		{Topic: "orders", QueueId: 0},
		{Topic: "orders", QueueId: 1},
	}
	s.recorder.prepare = func(f *fakeProducer) { f.queues = queues }
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	seen := make(map[int]bool)
	for range 4 {
		result, err := p.Send(s.ctx, primitive.NewMessage("orders", []byte("x")))
		s.Require().NoError(err)
		seen[result.MessageQueue.QueueId] = true
	}
	s.Len(seen, 2)
}

// === Shutdown ===

func (s *ProducerTestSuite) TestShutdown() {
	p := s.newProducer(testConfig())
	s.NoError(p.Shutdown(), "未启动时关闭是空操作")

	s.Require().NoError(p.Init())
	fake := s.recorder.last()

	s.NoError(p.Shutdown())
	s.True(fake.isShutdown())
	s.Equal(StateStopped, p.State())
	s.NoError(p.Shutdown(), "重复关闭是空操作")

	_, err := p.Send(s.ctx, primitive.NewMessage("orders", []byte("x")))
	s.ErrorIs(err, ErrProducerNotStarted)
}

func (s *ProducerTestSuite) TestShutdown_ErrorStillClearsHandle() {
	shutdownErr := errors.New("timeout")
	s.recorder.prepare = func(f *fakeProducer) { f.shutdownErr = shutdownErr }
	p := s.newProducer(testConfig())
	s.Require().NoError(p.Init())

	err := p.Shutdown()
	s.ErrorIs(err, ErrShutdown)
	s.ErrorIs(err, shutdownErr)
	s.Equal(StateStopped, p.State())
	s.NoError(p.Shutdown())
}

// === 并发 ===

func (s *ProducerTestSuite) TestConcurrentSendAndReload() {
	cfg := testConfig()
	cfg.Topics = "orders"
	p := s.newProducer(cfg)
	s.Require().NoError(p.Init())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 20 {
				_, err := p.Send(s.ctx, primitive.NewMessage("", []byte(strings.Repeat("x", i))))
				s.NoError(err)
			}
		}(i)
	}
	for range 5 {
		s.Require().NoError(p.Load())
	}
	wg.Wait()

	live := 0
	total := 0
	for _, f := range s.recorder.created {
		if !f.isShutdown() {
			live++
		}
		f.mu.Lock()
		total += len(f.sent)
		f.mu.Unlock()
	}
	s.Equal(1, live, "任何时刻只保留一个存活实例")
	s.Equal(8*20, total)
}

func (s *ProducerTestSuite) TestTopics() {
	cfg := testConfig()
	cfg.Topics = "b:x,a"
	p := s.newProducer(cfg)

	s.Equal([]string{"b", "a"}, p.Topics().Names())
}
