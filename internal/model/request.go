package model

// TopicSurface 聊天入口类型
type TopicSurface string

const (
	SurfaceMentor   TopicSurface = "mentor"   // 通用顾问
	SurfaceDataset  TopicSurface = "dataset"  // 数据集问答
	SurfaceAnalysis TopicSurface = "analysis" // 经营分析
)

// Topic 问题路由目标
// Dataset 入口必须带 DatasetID，其余入口忽略
type Topic struct {
	Surface   TopicSurface `json:"surface"`
	DatasetID string       `json:"dataset_id,omitempty"`
}

func (t Topic) Equal(other Topic) bool {
	return t.Surface == other.Surface && t.DatasetID == other.DatasetID
}

// StreamRequest 一次流式提问的请求描述符，由 Router 构造
// 核心层只把 Endpoint/TopicID 当作不透明字符串
type StreamRequest struct {
	Endpoint       string `json:"endpoint"`
	TopicID        string `json:"topic_id,omitempty"`
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatStreamRequest 后端流式接口请求体
type ChatStreamRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Body 转换为线上请求体
func (r StreamRequest) Body() ChatStreamRequest {
	return ChatStreamRequest{
		Question:       r.Question,
		ConversationID: r.ConversationID,
	}
}
