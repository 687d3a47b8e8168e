package stream

import (
	"encoding/json"

	"advisor-stream/internal/model"
)

// Decode 按事件名解析载荷为类型化事件
// 畸形 JSON 与未知事件名直接丢弃（返回 false），不中断流
func Decode(raw RawEvent) (model.StreamEvent, bool) {
	switch model.EventKind(raw.Name) {
	case model.EventThinking:
		var p model.ThinkingPayload
		if err := json.Unmarshal([]byte(raw.Data), &p); err != nil {
			return model.StreamEvent{}, false
		}
		return model.StreamEvent{Kind: model.EventThinking, Thinking: &p}, true

	case model.EventContext:
		var p model.ContextPayload
		if err := json.Unmarshal([]byte(raw.Data), &p); err != nil {
			return model.StreamEvent{}, false
		}
		return model.StreamEvent{Kind: model.EventContext, Context: &p}, true

	case model.EventResponse, model.EventAnalysis:
		// response 与 analysis 语义相同，保留 Kind 供调用方区分
		var p model.ResponsePayload
		if err := json.Unmarshal([]byte(raw.Data), &p); err != nil {
			return model.StreamEvent{}, false
		}
		return model.StreamEvent{Kind: model.EventKind(raw.Name), Response: &p}, true

	case model.EventDone:
		var p model.DonePayload
		if err := json.Unmarshal([]byte(raw.Data), &p); err != nil {
			return model.StreamEvent{}, false
		}
		return model.StreamEvent{Kind: model.EventDone, Done: &p}, true

	case model.EventError:
		var p model.ErrorPayload
		if err := json.Unmarshal([]byte(raw.Data), &p); err != nil {
			return model.StreamEvent{}, false
		}
		return model.StreamEvent{Kind: model.EventError, Error: &p}, true

	default:
		return model.StreamEvent{}, false
	}
}
