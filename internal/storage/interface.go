package storage

import (
	"advisor-stream/internal/model"
)

// Storage 后端侧对话记录存储
// 客户端不持久化任何内容，落盘与否是后端自己的事
type Storage interface {
	// 对话管理
	CreateConversation(t *model.Transcript) error
	GetConversation(id string) (*model.Transcript, error)
	UpdateConversation(t *model.Transcript) error
	DeleteConversation(id string) error
	ListConversations() ([]*model.Transcript, error)

	// 消息管理
	AddMessage(conversationID string, message *model.Message) error
	GetMessages(conversationID string) ([]model.Message, error)

	Init() error
	Close() error
}
