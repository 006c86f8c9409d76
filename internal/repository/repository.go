package repository

import (
	"errors"

	"github.com/docpilot/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

type ProjectRepository interface {
	Create(project *model.Project) error
	Get(id string) (*model.Project, error)
	List() ([]model.Project, error)
	Delete(id string) error
}

type DocumentRepository interface {
	Create(doc *model.Document) error
	Get(id string) (*model.Document, error)
	GetByName(projectID, name string) (*model.Document, error)
	UpdateContent(id, content string) error
	Save(doc *model.Document) error
	ListByProject(projectID string) ([]model.Document, error)
	ExistsByNameInProject(projectID, name, excludeID string) (string, bool, error)
	Delete(id string) error
}

type ChatRepository interface {
	Create(chat *model.Chat) error
	Get(id string) (*model.Chat, error)
	GetByToken(token string) (*model.Chat, error)
	AddMessage(msg *model.ChatMessage) error
	GetMessages(chatID string, limit int) ([]model.ChatMessage, error)
}
