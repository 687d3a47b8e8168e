package model

import "time"

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status 会话状态机状态
type Status int

const (
	StatusIdle      Status = iota // 空闲，可提交新问题
	StatusThinking                // 已提交，后端尚未开始生成
	StatusStreaming               // 后端正在生成，助手消息持续更新
	StatusDone                    // 本轮正常结束
	StatusError                   // 传输或协议错误
	StatusCancelled               // 用户主动取消
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusThinking:
		return "thinking"
	case StatusStreaming:
		return "streaming"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Active 是否有正在进行的流式生成
func (s Status) Active() bool {
	return s == StatusThinking || s == StatusStreaming
}

// Message 一条聊天记录
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Persona   string    `json:"persona,omitempty"` // 回答消息的顾问角色标签
	Timestamp time.Time `json:"timestamp"`
}

// Conversation 一次多轮对话的客户端视图
// ID 由后端在首个 done 事件中分配，之后保持不变
type Conversation struct {
	ID             string    `json:"id,omitempty"`
	Messages       []Message `json:"messages"`
	Status         Status    `json:"status"`
	ContextSources []string  `json:"context_sources,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Clone 深拷贝，用于对外快照
func (c *Conversation) Clone() Conversation {
	out := Conversation{
		ID:     c.ID,
		Status: c.Status,
		Error:  c.Error,
	}
	if len(c.Messages) > 0 {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	if len(c.ContextSources) > 0 {
		out.ContextSources = make([]string, len(c.ContextSources))
		copy(out.ContextSources, c.ContextSources)
	}
	return out
}

// LastMessage 返回最后一条消息，没有则返回 nil
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// Transcript 后端侧持久化的对话记录
type Transcript struct {
	ID        string    `json:"id"`
	Topic     Topic     `json:"topic"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
