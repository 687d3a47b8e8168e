package handler

import (
	"net/http"

	"advisor-stream/internal/advisor"
	"advisor-stream/internal/model"
	"advisor-stream/internal/utils"
	"advisor-stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StreamHandler 三个聊天入口共用的流式接口
// 事件序列：thinking(queued) → thinking(calling_llm) → context →
// response/analysis（累积全文）→ done / error
type StreamHandler struct {
	svc *advisor.Service
}

func NewStreamHandler(svc *advisor.Service) *StreamHandler {
	return &StreamHandler{svc: svc}
}

// MentorStream 通用顾问聊天
func (h *StreamHandler) MentorStream(c *gin.Context) {
	h.stream(c, model.Topic{Surface: model.SurfaceMentor}, string(model.EventResponse))
}

// DatasetStream 数据集问答
func (h *StreamHandler) DatasetStream(c *gin.Context) {
	topic := model.Topic{
		Surface:   model.SurfaceDataset,
		DatasetID: c.Param("dataset_id"),
	}
	h.stream(c, topic, string(model.EventResponse))
}

// AnalysisStream 经营分析聊天，内容走 analysis 事件名
func (h *StreamHandler) AnalysisStream(c *gin.Context) {
	h.stream(c, model.Topic{Surface: model.SurfaceAnalysis}, string(model.EventAnalysis))
}

func (h *StreamHandler) stream(c *gin.Context, topic model.Topic, contentEvent string) {
	var req model.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sse := utils.NewSSEWriter(c.Writer)
	ctx := c.Request.Context()

	// 先确认收到，再进入生成
	sse.WriteJSON(string(model.EventThinking), model.ThinkingPayload{Status: "queued"})

	turn, err := h.svc.StreamAnswer(ctx, topic, req.Question, req.ConversationID)
	if err != nil {
		logger.Errorf("开始生成回答失败: %v", err)
		sse.WriteJSON(string(model.EventError), model.ErrorPayload{Error: "回答生成失败，请稍后重试"})
		sse.Close()
		return
	}

	sse.WriteJSON(string(model.EventThinking), model.ThinkingPayload{Status: "calling_llm"})
	sse.WriteJSON(string(model.EventContext), model.ContextPayload{Sources: turn.Sources})

	chunks := turn.Chunks
	errs := turn.Errs

	for {
		select {
		case full, ok := <-chunks:
			if !ok {
				sse.WriteJSON(string(model.EventDone), model.DonePayload{ConversationID: turn.ConversationID})
				sse.Close()
				return
			}
			if err := sse.WriteJSON(contentEvent, model.ResponsePayload{
				Content: full,
				Persona: turn.Persona,
			}); err != nil {
				logger.Warnf("写入 SSE 失败: %v", err)
				return
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil // 通道已关闭，交给 chunks 分支收尾
				continue
			}
			if err != nil {
				logger.Errorf("回答生成中断: %v", err)
				sse.WriteJSON(string(model.EventError), model.ErrorPayload{Error: "回答生成失败，请稍后重试"})
				sse.Close()
				return
			}

		case <-ctx.Done():
			// 客户端断开，直接收尾
			return
		}
	}
}

// GetConversation 查询服务端保存的对话记录
func (h *StreamHandler) GetConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	t, err := h.svc.GetTranscript(conversationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, t)
}
