package repository

import (
	"errors"

	"github.com/docpilot/backend/internal/model"
	"gorm.io/gorm"
)

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

func (r *chatRepository) Get(id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.First(&chat, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) GetByToken(token string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.First(&chat, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) AddMessage(msg *model.ChatMessage) error {
	return r.db.Create(msg).Error
}

// GetMessages 返回最近 limit 条消息，按时间正序。limit<=0 表示不限。
func (r *chatRepository) GetMessages(chatID string, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	q := r.db.Where("chat_id = ?", chatID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
