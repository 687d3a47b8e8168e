package advisor

import (
	"context"

	"advisor-stream/internal/model"
)

// Engine 回答生成引擎
// 返回增量内容通道与错误通道，内容通道关闭表示生成结束
type Engine interface {
	Stream(ctx context.Context, topic model.Topic, history []model.Message, question string) (<-chan string, <-chan error)
}

// PersonaFor 话题对应的顾问角色标签
func PersonaFor(topic model.Topic) string {
	switch topic.Surface {
	case model.SurfaceDataset:
		return "数据分析师"
	case model.SurfaceAnalysis:
		return "经营分析顾问"
	default:
		return "创业导师"
	}
}
