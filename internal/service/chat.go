package service

import (
	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/repository"
)

// ChatService 会话查询。消息写入由决策流水线负责。
type ChatService struct {
	chats repository.ChatRepository
}

func NewChatService(chats repository.ChatRepository) *ChatService {
	return &ChatService{chats: chats}
}

func (s *ChatService) GetByToken(token string) (*model.Chat, error) {
	return s.chats.GetByToken(token)
}

func (s *ChatService) GetMessages(chatID string, limit int) ([]model.ChatMessage, error) {
	return s.chats.GetMessages(chatID, limit)
}
