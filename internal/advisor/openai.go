package advisor

import (
	"context"
	"fmt"
	"io"

	"advisor-stream/internal/config"
	"advisor-stream/internal/model"
	"advisor-stream/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine 通过 OpenAI 兼容接口流式生成回答
type OpenAIEngine struct {
	client *openai.Client
	cfg    config.ModelConfig
}

func NewOpenAIEngine(cfg config.ModelConfig) *OpenAIEngine {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

func (e *OpenAIEngine) Stream(ctx context.Context, topic model.Topic, history []model.Message, question string) (<-chan string, <-chan error) {
	chunks := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		stream, err := e.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       e.cfg.Model,
			Messages:    e.buildMessages(topic, history, question),
			MaxTokens:   e.cfg.MaxTokens,
			Temperature: e.cfg.Temperature,
			Stream:      true,
		})
		if err != nil {
			errs <- fmt.Errorf("create completion stream: %w", err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					return
				}
				logger.Errorf("模型流接收失败: %v", err)
				errs <- err
				return
			}

			if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
				select {
				case chunks <- resp.Choices[0].Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return chunks, errs
}

func (e *OpenAIEngine) buildMessages(topic model.Topic, history []model.Message, question string) []openai.ChatCompletionMessage {
	system := fmt.Sprintf("你是一位%s，为中小企业创始人提供务实的经营建议。回答简洁、可执行。", PersonaFor(topic))
	if topic.Surface == model.SurfaceDataset {
		system += fmt.Sprintf(" 当前问题基于数据集 %s。", topic.DatasetID)
	}

	out := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}

	for _, msg := range history {
		// 跳过空的 assistant 消息，避免接口报错
		if msg.Role == model.RoleAssistant && msg.Content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if msg.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	return out
}
