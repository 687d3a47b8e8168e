package service

import (
	"errors"
	"testing"

	"advisor-stream/internal/model"
)

func thinkingEv(status string) model.StreamEvent {
	return model.StreamEvent{Kind: model.EventThinking, Thinking: &model.ThinkingPayload{Status: status}}
}

func contextEv(sources ...string) model.StreamEvent {
	return model.StreamEvent{Kind: model.EventContext, Context: &model.ContextPayload{Sources: sources}}
}

func responseEv(content string) model.StreamEvent {
	return model.StreamEvent{Kind: model.EventResponse, Response: &model.ResponsePayload{Content: content}}
}

func doneEv(conversationID string) model.StreamEvent {
	return model.StreamEvent{Kind: model.EventDone, Done: &model.DonePayload{ConversationID: conversationID}}
}

func errorEv(msg string) model.StreamEvent {
	return model.StreamEvent{Kind: model.EventError, Error: &model.ErrorPayload{Error: msg}}
}

func TestSubmitStartsThinking(t *testing.T) {
	sm := NewStateMachine()

	gen, err := sm.Submit("库存周转慢怎么办")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gen != 1 {
		t.Errorf("generation = %d, want 1", gen)
	}

	snap := sm.Snapshot()
	if snap.Status != model.StatusThinking {
		t.Errorf("Status = %v, want Thinking", snap.Status)
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(snap.Messages))
	}
	if snap.Messages[0].Role != model.RoleUser || snap.Messages[0].Content != "库存周转慢怎么办" {
		t.Errorf("user message = %+v", snap.Messages[0])
	}
}

func TestSubmitRejectedWhileActive(t *testing.T) {
	sm := NewStateMachine()
	if _, err := sm.Submit("第一问"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := sm.Submit("第二问"); !errors.Is(err, ErrGenerationActive) {
		t.Fatalf("second Submit err = %v, want ErrGenerationActive", err)
	}

	snap := sm.Snapshot()
	if len(snap.Messages) != 1 {
		t.Errorf("rejected submit changed the transcript: %d messages", len(snap.Messages))
	}
}

// 完整的一轮：queued 确认 → 进入生成 → 两次累积全文 → done
func TestFullTurnScenario(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("怎么提升复购率")

	sm.Apply(gen, thinkingEv("queued"))
	if got := sm.Snapshot().Status; got != model.StatusThinking {
		t.Errorf("after queued: Status = %v, want Thinking", got)
	}

	sm.Apply(gen, thinkingEv("calling_llm"))
	if got := sm.Snapshot().Status; got != model.StatusStreaming {
		t.Errorf("after calling_llm: Status = %v, want Streaming", got)
	}

	sm.Apply(gen, contextEv("conversation:history"))
	sm.Apply(gen, responseEv("先分析"))
	sm.Apply(gen, responseEv("先分析用户画像，再做会员体系"))
	sm.Apply(gen, doneEv("c1"))

	snap := sm.Snapshot()
	if snap.Status != model.StatusDone {
		t.Errorf("Status = %v, want Done", snap.Status)
	}
	if snap.ID != "c1" {
		t.Errorf("conversation ID = %q, want c1", snap.ID)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(snap.Messages))
	}
	last := snap.Messages[1]
	if last.Role != model.RoleAssistant {
		t.Errorf("last role = %v", last.Role)
	}
	// 累积全文整体替换，不是追加
	if last.Content != "先分析用户画像，再做会员体系" {
		t.Errorf("final content = %q", last.Content)
	}
	if len(snap.ContextSources) != 1 || snap.ContextSources[0] != "conversation:history" {
		t.Errorf("sources = %v", snap.ContextSources)
	}
}

// 一代流内始终只有一条打开的助手消息，且总在末尾
func TestSingleOpenAssistantMessage(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")

	sm.Apply(gen, responseEv("a"))
	sm.Apply(gen, responseEv("ab"))
	sm.Apply(gen, responseEv("abc"))

	snap := sm.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (user + one assistant)", len(snap.Messages))
	}
	if snap.LastMessage().Content != "abc" {
		t.Errorf("assistant content = %q", snap.LastMessage().Content)
	}
}

func TestDoneKeepsFirstConversationID(t *testing.T) {
	sm := NewStateMachine()

	gen, _ := sm.Submit("第一轮")
	sm.Apply(gen, responseEv("回答一"))
	sm.Apply(gen, doneEv("c1"))

	gen, _ = sm.Submit("第二轮")
	sm.Apply(gen, responseEv("回答二"))
	sm.Apply(gen, doneEv("c2"))

	if id := sm.ConversationID(); id != "c1" {
		t.Errorf("conversation ID = %q, want first assignment c1", id)
	}
}

func TestEventsAfterTerminalIgnored(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Apply(gen, responseEv("最终回答"))
	sm.Apply(gen, doneEv("c1"))

	// 服务端在 done 之后多发的帧不应改变任何状态
	sm.Apply(gen, responseEv("迟到的内容"))
	sm.Apply(gen, errorEv("迟到的错误"))
	sm.Fail(gen, "迟到的传输失败")

	snap := sm.Snapshot()
	if snap.Status != model.StatusDone {
		t.Errorf("Status = %v, want Done", snap.Status)
	}
	if snap.LastMessage().Content != "最终回答" {
		t.Errorf("content = %q", snap.LastMessage().Content)
	}
	if snap.Error != "" {
		t.Errorf("Error = %q, want empty", snap.Error)
	}
}

func TestStaleGenerationIgnored(t *testing.T) {
	sm := NewStateMachine()
	oldGen, _ := sm.Submit("旧问题")
	sm.CancelGeneration(oldGen)

	newGen, _ := sm.Submit("新问题")
	sm.Apply(oldGen, responseEv("旧流的残留"))
	sm.Apply(newGen, responseEv("新流的回答"))

	snap := sm.Snapshot()
	if snap.LastMessage().Content != "新流的回答" {
		t.Errorf("content = %q", snap.LastMessage().Content)
	}
}

func TestCancelKeepsPartialAnswer(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Apply(gen, responseEv("写到一半的"))
	sm.CancelGeneration(gen)

	snap := sm.Snapshot()
	if snap.Status != model.StatusCancelled {
		t.Errorf("Status = %v, want Cancelled", snap.Status)
	}
	if snap.LastMessage().Content != "写到一半的" {
		t.Errorf("partial answer lost: %q", snap.LastMessage().Content)
	}

	// 取消后可以直接重新提问
	gen2, err := sm.Submit("重新问")
	if err != nil {
		t.Fatalf("Submit after cancel: %v", err)
	}
	sm.Apply(gen2, responseEv("新回答"))
	sm.Apply(gen2, doneEv("c1"))
	if got := sm.Snapshot().Status; got != model.StatusDone {
		t.Errorf("Status = %v, want Done", got)
	}
}

func TestErrorEventEntersErrorState(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Apply(gen, errorEv("模型服务不可用"))

	snap := sm.Snapshot()
	if snap.Status != model.StatusError {
		t.Errorf("Status = %v, want Error", snap.Status)
	}
	if snap.Error != "模型服务不可用" {
		t.Errorf("Error = %q", snap.Error)
	}
}

func TestErrorEventEmptyMessageGetsFallback(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Apply(gen, errorEv(""))

	if snap := sm.Snapshot(); snap.Error == "" {
		t.Error("empty error event should fall back to a user-facing message")
	}
}

// 零事件失败：连接断开，一个内容事件都没到
func TestFailBeforeAnyContent(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Fail(gen, msgStreamFailed)

	snap := sm.Snapshot()
	if snap.Status != model.StatusError {
		t.Errorf("Status = %v, want Error", snap.Status)
	}
	if snap.Error != msgStreamFailed {
		t.Errorf("Error = %q", snap.Error)
	}
	// 只有用户消息，没有空的助手消息
	if len(snap.Messages) != 1 || snap.Messages[0].Role != model.RoleUser {
		t.Errorf("messages = %+v", snap.Messages)
	}

	// 错误后重新提交应清掉上次的错误
	gen2, err := sm.Submit("再试一次")
	if err != nil {
		t.Fatalf("Submit after error: %v", err)
	}
	if snap := sm.Snapshot(); snap.Error != "" {
		t.Errorf("Error not cleared on resubmit: %q", snap.Error)
	}
	_ = gen2
}

func TestResetInvalidatesInFlightEvents(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Apply(gen, responseEv("部分回答"))
	sm.Apply(gen, doneEv("c1"))
	sm.Reset()

	snap := sm.Snapshot()
	if snap.Status != model.StatusIdle {
		t.Errorf("Status = %v, want Idle", snap.Status)
	}
	if len(snap.Messages) != 0 || snap.ID != "" {
		t.Errorf("reset left residue: %+v", snap)
	}

	// 旧代事件在重置后到达，一律忽略
	sm.Apply(gen, responseEv("残留"))
	if got := len(sm.Snapshot().Messages); got != 0 {
		t.Errorf("stale event applied after reset: %d messages", got)
	}
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	sm := NewStateMachine()
	ch := sm.Subscribe()

	if _, err := sm.Submit("q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-ch:
	default:
		t.Fatal("no notification after Submit")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	sm := NewStateMachine()
	ch := sm.Subscribe()
	kept := sm.Subscribe()

	sm.Unsubscribe(ch)
	sm.Unsubscribe(ch) // 重复注销安全

	if _, err := sm.Submit("q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-ch:
		t.Error("received notification after Unsubscribe")
	default:
	}
	select {
	case <-kept:
	default:
		t.Error("remaining subscriber missed the notification")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	sm := NewStateMachine()
	gen, _ := sm.Submit("q")
	sm.Apply(gen, contextEv("dataset:d1"))
	sm.Apply(gen, responseEv("回答"))

	snap := sm.Snapshot()
	snap.Messages[0].Content = "篡改"
	snap.ContextSources[0] = "篡改"

	fresh := sm.Snapshot()
	if fresh.Messages[0].Content != "q" {
		t.Error("snapshot shares message backing array with the machine")
	}
	if fresh.ContextSources[0] != "dataset:d1" {
		t.Error("snapshot shares sources backing array with the machine")
	}
}
