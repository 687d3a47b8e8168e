package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"advisor-stream/internal/model"
)

// CannedEngine 内置顾问，未配置模型 API Key 时使用
// 输出确定性的建议文本，保证本地开发和测试离线可用
type CannedEngine struct {
	// ChunkDelay 模拟生成节奏，测试中可设为 0
	ChunkDelay time.Duration
}

func NewCannedEngine() *CannedEngine {
	return &CannedEngine{ChunkDelay: 30 * time.Millisecond}
}

func (e *CannedEngine) Stream(ctx context.Context, topic model.Topic, history []model.Message, question string) (<-chan string, <-chan error) {
	chunks := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		for _, part := range strings.SplitAfter(e.answer(topic, question), " ") {
			if part == "" {
				continue
			}
			select {
			case chunks <- part:
			case <-ctx.Done():
				return
			}
			if e.ChunkDelay > 0 {
				time.Sleep(e.ChunkDelay)
			}
		}
	}()

	return chunks, errs
}

func (e *CannedEngine) answer(topic model.Topic, question string) string {
	switch topic.Surface {
	case model.SurfaceDataset:
		return fmt.Sprintf("基于数据集 %s 的初步观察： 针对「%s」， 建议先确认数据口径和时间范围， 再看趋势与分布的异常点。 （离线内置回答，接入模型后替换）",
			topic.DatasetID, question)
	case model.SurfaceAnalysis:
		return fmt.Sprintf("围绕「%s」的分析思路： 先拆解为收入、成本、效率三个维度， 逐项对比近三个周期的变化。 （离线内置回答，接入模型后替换）", question)
	default:
		return fmt.Sprintf("关于「%s」： 建议聚焦最小可验证的下一步， 设定一个可量化的周目标并每周复盘。 （离线内置回答，接入模型后替换）", question)
	}
}
