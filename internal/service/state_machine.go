package service

import (
	"sync"
	"time"

	"advisor-stream/internal/model"

	"github.com/google/uuid"
)

// 用户可见的兜底错误文案
const (
	msgStreamFailed      = "顾问服务连接失败，请稍后重试"
	msgStreamInterrupted = "回答传输中断，请重试"
	msgGenericError      = "顾问服务出现错误，请稍后重试"
)

// StateMachine 会话状态机，协议客户端的核心
// 按到达顺序消费解码后的事件，确定性地更新 Conversation
// 渲染层通过 Snapshot/Subscribe 观察，自身不持有任何渲染逻辑
type StateMachine struct {
	mu         sync.Mutex
	conv       model.Conversation
	generation int  // 流代数，一次提问-回答为一代
	openMsg    bool // 末尾助手消息是否仍在接收更新
	subs       []chan struct{}
}

func NewStateMachine() *StateMachine {
	return &StateMachine{
		conv: model.Conversation{Status: model.StatusIdle},
	}
}

// Snapshot 当前会话的深拷贝
func (m *StateMachine) Snapshot() model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv.Clone()
}

// Subscribe 返回变更通知通道，通知会合并（容量 1）
// 不再使用时通过 Unsubscribe 注销，否则通道随状态机一直存活
func (m *StateMachine) Subscribe() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{}, 1)
	m.subs = append(m.subs, ch)
	return ch
}

// Unsubscribe 注销 Subscribe 返回的通道，未登记的通道为空操作
func (m *StateMachine) Unsubscribe(ch <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subs {
		if sub == ch {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// ConversationID 后端分配的会话 ID，未分配时为空串
func (m *StateMachine) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv.ID
}

// Submit 提交新问题，开启一代流式生成
// 已有进行中的生成时拒绝（防御性约束，UI 同时应禁用提交）
func (m *StateMachine) Submit(question string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conv.Status.Active() {
		return 0, ErrGenerationActive
	}

	m.generation++
	m.conv.Error = ""
	m.conv.Status = model.StatusThinking
	m.openMsg = false
	m.conv.Messages = append(m.conv.Messages, model.Message{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	})

	m.notify()
	return m.generation, nil
}

// Apply 把一个事件作用到指定代的会话上
// 过期代或已进入终态的事件直接忽略
func (m *StateMachine) Apply(gen int, ev model.StreamEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || !m.conv.Status.Active() {
		return
	}

	switch ev.Kind {
	case model.EventThinking:
		// 仅排队确认不改变状态，进入生成阶段才切到 Streaming
		if ev.Thinking.Generating() && m.conv.Status == model.StatusThinking {
			m.conv.Status = model.StatusStreaming
			m.notify()
		}

	case model.EventContext:
		sources := make([]string, len(ev.Context.Sources))
		copy(sources, ev.Context.Sources)
		m.conv.ContextSources = sources
		m.conv.Status = model.StatusStreaming
		m.notify()

	case model.EventResponse, model.EventAnalysis:
		// 服务端每次重发累积全文，整体替换而非追加
		text := ev.Response.CumulativeText()
		if !m.openMsg {
			m.conv.Messages = append(m.conv.Messages, model.Message{
				ID:        uuid.New().String(),
				Role:      model.RoleAssistant,
				Content:   text,
				Persona:   ev.Response.Persona,
				Timestamp: time.Now(),
			})
			m.openMsg = true
		} else {
			m.conv.Messages[len(m.conv.Messages)-1].Content = text
		}
		m.conv.Status = model.StatusStreaming
		m.notify()

	case model.EventDone:
		// 会话 ID 只取首次，后续 done 不覆盖
		if m.conv.ID == "" && ev.Done.ConversationID != "" {
			m.conv.ID = ev.Done.ConversationID
		}
		m.openMsg = false
		m.conv.Status = model.StatusDone
		m.notify()

	case model.EventError:
		msg := ev.Error.Error
		if msg == "" {
			msg = msgGenericError
		}
		m.failLocked(msg)
	}
}

// Fail 把当前代切到错误终态
// 传输层失败和外部看门狗共用此入口；终态下为空操作
// 已有的部分回答保持原样，不回滚
func (m *StateMachine) Fail(gen int, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || !m.conv.Status.Active() {
		return
	}
	if msg == "" {
		msg = msgGenericError
	}
	m.failLocked(msg)
}

func (m *StateMachine) failLocked(msg string) {
	m.conv.Error = msg
	m.openMsg = false
	m.conv.Status = model.StatusError
	m.notify()
}

// CancelGeneration 用户取消，保留已到达的部分回答
func (m *StateMachine) CancelGeneration(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || !m.conv.Status.Active() {
		return
	}
	m.openMsg = false
	m.conv.Status = model.StatusCancelled
	m.notify()
}

// Reset 丢弃当前会话，开始一个全新 Conversation
// 切换话题或用户清空历史时调用；在途事件因代数失效被忽略
func (m *StateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.conv = model.Conversation{Status: model.StatusIdle}
	m.openMsg = false
	m.notify()
}

func (m *StateMachine) notify() {
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
