package model

// EventKind SSE 事件名
type EventKind string

const (
	EventThinking EventKind = "thinking"
	EventContext  EventKind = "context"
	EventResponse EventKind = "response"
	EventAnalysis EventKind = "analysis"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// ThinkingPayload 后端处理阶段通知
type ThinkingPayload struct {
	Status string `json:"status"` // queued, calling_llm 等
}

// Generating 是否已进入生成阶段（仅排队确认不算）
func (p ThinkingPayload) Generating() bool {
	switch p.Status {
	case "", "queued", "received":
		return false
	default:
		return true
	}
}

// ContextPayload 本轮回答引用的上下文来源，整体替换
type ContextPayload struct {
	Sources []string `json:"sources"`
}

// ResponsePayload response/analysis 事件载荷
// content 与 text 均可能携带累积全文，服务端为权威
type ResponsePayload struct {
	Content string `json:"content"`
	Text    string `json:"text"`
	Persona string `json:"persona,omitempty"`
}

// CumulativeText 取出累积全文
func (p ResponsePayload) CumulativeText() string {
	if p.Content != "" {
		return p.Content
	}
	return p.Text
}

// DonePayload 终止事件载荷
type DonePayload struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

// ErrorPayload 协议错误事件载荷
type ErrorPayload struct {
	Error string `json:"error,omitempty"`
}

// StreamEvent 解码后的类型化事件
// Kind 决定哪个载荷字段非空
type StreamEvent struct {
	Kind     EventKind
	Thinking *ThinkingPayload
	Context  *ContextPayload
	Response *ResponsePayload
	Done     *DonePayload
	Error    *ErrorPayload
}
