package service

import (
	"strings"

	"advisor-stream/internal/config"
	"advisor-stream/internal/model"
)

// Router 把问题路由到对应的后端话题入口
// 纯选择逻辑，产出的 Endpoint/TopicID 对核心层不透明
type Router struct {
	cfg config.ClientConfig
}

func NewRouter(cfg config.ClientConfig) *Router {
	return &Router{cfg: cfg}
}

// BuildRequest 根据话题构造流式请求描述符
func (r *Router) BuildRequest(topic model.Topic, question, conversationID string) (model.StreamRequest, error) {
	base := strings.TrimRight(r.cfg.BaseURL, "/")

	var endpoint, topicID string
	switch topic.Surface {
	case model.SurfaceMentor:
		endpoint = base + r.cfg.MentorPath
		topicID = "general"

	case model.SurfaceDataset:
		if topic.DatasetID == "" {
			return model.StreamRequest{}, ErrMissingDatasetID
		}
		endpoint = base + strings.Replace(r.cfg.DatasetPath, "{dataset_id}", topic.DatasetID, 1)
		topicID = topic.DatasetID

	case model.SurfaceAnalysis:
		endpoint = base + r.cfg.AnalysisPath
		topicID = "analysis"

	default:
		return model.StreamRequest{}, ErrUnknownSurface
	}

	return model.StreamRequest{
		Endpoint:       endpoint,
		TopicID:        topicID,
		Question:       question,
		ConversationID: conversationID,
	}, nil
}
