package store

import (
	"context"
	"sync"

	"github.com/effective-security/biomcp/chatmodel"
	"github.com/effective-security/biomcp/pkg/llms"
)

// MemoryStore is an in-process ChatHistory.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string][]llms.Message
}

var _ ChatHistory = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory chat history.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats: make(map[string][]llms.Message),
	}
}

// Messages implements ChatHistory.
func (s *MemoryStore) Messages(ctx context.Context) []llms.Message {
	chatID := chatmodel.GetChatID(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.chats[chatID]
	out := make([]llms.Message, len(stored))
	copy(out, stored)
	return out
}

// Add implements ChatHistory.
func (s *MemoryStore) Add(ctx context.Context, messages ...llms.Message) error {
	chatID := chatmodel.GetChatID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[chatID] = append(s.chats[chatID], messages...)
	return nil
}

// Reset implements ChatHistory.
func (s *MemoryStore) Reset(ctx context.Context) error {
	chatID := chatmodel.GetChatID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chats, chatID)
	return nil
}
