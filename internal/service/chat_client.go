package service

import (
	"context"
	"net/http"
	"sync"

	"advisor-stream/internal/config"
	"advisor-stream/internal/model"
	"advisor-stream/internal/stream"
	"advisor-stream/internal/utils"
	"advisor-stream/pkg/logger"
)

// ChatClient 流式会话协议客户端
// 导师聊天、数据集问答、经营分析共用这一份实现，
// 差异只在 Router 产出的请求描述符
type ChatClient struct {
	router     *Router
	sm         *StateMachine
	cancels    *CancelController
	httpClient *http.Client

	mu    sync.Mutex
	topic model.Topic
}

func NewChatClient(cfg config.ClientConfig, topic model.Topic) *ChatClient {
	return &ChatClient{
		router:     NewRouter(cfg),
		sm:         NewStateMachine(),
		cancels:    &CancelController{},
		httpClient: utils.NewStreamHTTPClient(cfg.ConnectTimeout),
		topic:      topic,
	}
}

// Snapshot 当前会话快照
func (c *ChatClient) Snapshot() model.Conversation {
	return c.sm.Snapshot()
}

// Subscribe 会话变更通知，用完通过 Unsubscribe 注销
func (c *ChatClient) Subscribe() <-chan struct{} {
	return c.sm.Subscribe()
}

// Unsubscribe 注销变更通知通道
func (c *ChatClient) Unsubscribe(ch <-chan struct{}) {
	c.sm.Unsubscribe(ch)
}

// Topic 当前话题
func (c *ChatClient) Topic() model.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

// StateMachine 暴露状态机供外部看门狗驱动错误转移
func (c *ChatClient) StateMachine() *StateMachine {
	return c.sm
}

// Ask 提交问题并在后台消费事件流，不阻塞调用方
// 已有进行中的生成时返回 ErrGenerationActive，会话不受影响
func (c *ChatClient) Ask(ctx context.Context, question string) error {
	gen, err := c.sm.Submit(question)
	if err != nil {
		return err
	}

	c.mu.Lock()
	topic := c.topic
	c.mu.Unlock()

	req, err := c.router.BuildRequest(topic, question, c.sm.ConversationID())
	if err != nil {
		c.sm.Fail(gen, msgStreamFailed)
		return err
	}

	// 取消句柄在发起传输前登记，Cancel 同步改状态，
	// 底层连接随 context 异步拆除
	ctx, cancelStream := context.WithCancel(ctx)
	c.cancels.Set(gen, func() {
		cancelStream()
		c.sm.CancelGeneration(gen)
	})

	go c.run(ctx, cancelStream, gen, req)
	return nil
}

// Cancel 取消在途生成，无在途流时为空操作
func (c *ChatClient) Cancel() {
	c.cancels.Cancel()
}

// SwitchTopic 切换话题：丢弃旧会话，新会话 ID 置空
// 避免旧 conversation_id 被带到不同的后端上下文
func (c *ChatClient) SwitchTopic(topic model.Topic) {
	c.mu.Lock()
	same := c.topic.Equal(topic)
	c.mu.Unlock()
	if same {
		return
	}

	c.cancels.Cancel()
	c.sm.Reset()

	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
}

// Reset 清空历史，开始全新会话
func (c *ChatClient) Reset() {
	c.cancels.Cancel()
	c.sm.Reset()
}

// run 单个消费循环按到达顺序应用事件，不并行处理
func (c *ChatClient) run(ctx context.Context, cancelStream context.CancelFunc, gen int, req model.StreamRequest) {
	defer cancelStream()
	defer c.cancels.ClearIf(gen)

	reader, err := stream.Open(ctx, c.httpClient, req)
	if err != nil {
		logger.Warnf("打开流式连接失败: %v", err)
		c.sm.Fail(gen, msgStreamFailed)
		return
	}

	for raw := range reader.Events() {
		ev, ok := stream.Decode(raw)
		if !ok {
			continue
		}
		c.sm.Apply(gen, ev)
	}

	if err := reader.Err(); err != nil {
		logger.Warnf("流式传输中断: %v", err)
	}

	// 未观察到终止事件时落到错误终态；已终止则为空操作
	c.sm.Fail(gen, msgStreamInterrupted)
}
