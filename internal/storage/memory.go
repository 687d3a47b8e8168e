package storage

import (
	"sync"
	"time"

	"advisor-stream/internal/model"
)

type MemoryStorage struct {
	conversations map[string]*model.Transcript
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*model.Transcript),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) CreateConversation(t *model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations[t.ID] = t
	return nil
}

func (m *MemoryStorage) GetConversation(id string) (*model.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.conversations[id]
	if !exists {
		return nil, ErrConversationNotFound
	}

	return t, nil
}

func (m *MemoryStorage) UpdateConversation(t *model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[t.ID]; !exists {
		return ErrConversationNotFound
	}

	m.conversations[t.ID] = t
	return nil
}

func (m *MemoryStorage) DeleteConversation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; !exists {
		return ErrConversationNotFound
	}

	delete(m.conversations, id)
	return nil
}

func (m *MemoryStorage) ListConversations() ([]*model.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Transcript, 0, len(m.conversations))
	for _, t := range m.conversations {
		out = append(out, t)
	}

	return out, nil
}

func (m *MemoryStorage) AddMessage(conversationID string, message *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.conversations[conversationID]
	if !exists {
		return ErrConversationNotFound
	}

	t.Messages = append(t.Messages, *message)
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) GetMessages(conversationID string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.conversations[conversationID]
	if !exists {
		return nil, ErrConversationNotFound
	}

	out := make([]model.Message, len(t.Messages))
	copy(out, t.Messages)

	return out, nil
}
