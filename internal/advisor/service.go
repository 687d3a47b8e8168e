package advisor

import (
	"context"
	"fmt"
	"time"

	"advisor-stream/internal/config"
	"advisor-stream/internal/model"
	"advisor-stream/internal/storage"
	"advisor-stream/pkg/logger"

	"github.com/google/uuid"
)

// Turn 一次提问-回答的服务端视图
type Turn struct {
	ConversationID string
	Persona        string
	Sources        []string
	Chunks         <-chan string
	Errs           <-chan error
}

// Service 顾问后端业务层：持久化对话、派生上下文来源、驱动生成引擎
type Service struct {
	store  storage.Storage
	engine Engine
	cfg    *config.Config
}

func NewService(cfg *config.Config, engine Engine, store storage.Storage) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		cfg:    cfg,
	}

	go s.cleanupExpired()

	return s
}

// StreamAnswer 记录用户消息并开始生成回答
// conversationID 为空时新建对话并分配 ID；回答全文在流结束后落库
func (s *Service) StreamAnswer(ctx context.Context, topic model.Topic, question, conversationID string) (*Turn, error) {
	transcript, err := s.ensureTranscript(topic, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	}
	if err := s.store.AddMessage(transcript.ID, userMsg); err != nil {
		return nil, fmt.Errorf("add user message: %w", err)
	}

	history, err := s.store.GetMessages(transcript.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	// 引擎看到的历史不含本次提问，问题单独传入
	history = history[:len(history)-1]

	chunks, errs := s.engine.Stream(ctx, topic, history, question)

	out := make(chan string, 100)
	outErrs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(outErrs)

		var full string
		for chunk := range chunks {
			full += chunk
			select {
			case out <- full: // 协议约定：每个事件重发累积全文
			case <-ctx.Done():
				return
			}
		}

		if err := <-errs; err != nil {
			outErrs <- err
			return
		}

		if full != "" {
			assistantMsg := &model.Message{
				ID:        uuid.New().String(),
				Role:      model.RoleAssistant,
				Content:   full,
				Persona:   PersonaFor(topic),
				Timestamp: time.Now(),
			}
			if err := s.store.AddMessage(transcript.ID, assistantMsg); err != nil {
				logger.Errorf("保存助手消息失败: %v", err)
			}
		}
	}()

	return &Turn{
		ConversationID: transcript.ID,
		Persona:        PersonaFor(topic),
		Sources:        s.contextSources(topic, history),
		Chunks:         out,
		Errs:           outErrs,
	}, nil
}

// GetTranscript 查询对话记录
func (s *Service) GetTranscript(conversationID string) (*model.Transcript, error) {
	return s.store.GetConversation(conversationID)
}

func (s *Service) ensureTranscript(topic model.Topic, conversationID string) (*model.Transcript, error) {
	if conversationID != "" {
		t, err := s.store.GetConversation(conversationID)
		if err == nil {
			return t, nil
		}
		if err != storage.ErrConversationNotFound {
			return nil, err
		}
		// 客户端带了 ID 但服务端没有（例如重启后），按原 ID 重建
		t = &model.Transcript{
			ID:        conversationID,
			Topic:     topic,
			Messages:  make([]model.Message, 0),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.store.CreateConversation(t); err != nil {
			return nil, err
		}
		return t, nil
	}

	t := &model.Transcript{
		ID:        uuid.New().String(),
		Topic:     topic,
		Messages:  make([]model.Message, 0),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.store.CreateConversation(t); err != nil {
		return nil, err
	}
	return t, nil
}

// contextSources 派生本轮回答引用的上下文来源标签
func (s *Service) contextSources(topic model.Topic, history []model.Message) []string {
	sources := make([]string, 0, 2)
	switch topic.Surface {
	case model.SurfaceDataset:
		sources = append(sources, "dataset:"+topic.DatasetID)
	case model.SurfaceAnalysis:
		sources = append(sources, "analysis:overview")
	default:
		sources = append(sources, "mentor:playbook")
	}
	if len(history) > 0 {
		sources = append(sources, "conversation:history")
	}
	return sources
}

func (s *Service) cleanupExpired() {
	ticker := time.NewTicker(s.cfg.Session.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		transcripts, err := s.store.ListConversations()
		if err != nil {
			logger.Errorf("清理过期对话失败: %v", err)
			continue
		}

		cutoff := time.Now().Add(-s.cfg.Session.TTL)
		for _, t := range transcripts {
			if t.UpdatedAt.Before(cutoff) {
				if err := s.store.DeleteConversation(t.ID); err != nil {
					logger.Errorf("删除过期对话 %s 失败: %v", t.ID, err)
				} else {
					logger.Infof("已清理过期对话: %s", t.ID)
				}
			}
		}
	}
}
