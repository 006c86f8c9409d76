package model

import "time"

// Project 项目实体，聚合文档与会话。
type Project struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Name        string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document 被维护的文档。StandingInstruction 为长期写作指令，
// 每次改写时随内容一并注入提示词。
type Document struct {
	ID                  string `gorm:"primaryKey;type:varchar(36)"`
	ProjectID           string `gorm:"type:varchar(36);index;not null"`
	Name                string `gorm:"type:varchar(255);not null"`
	StandingInstruction string `gorm:"type:text"`
	Content             string `gorm:"type:text"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Chat 一条持续的对话。Token 供客户端无状态续接。
type Chat struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ProjectID string `gorm:"type:varchar(36);index;not null"`
	Token     string `gorm:"type:varchar(36);uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 会话消息。Metadata 为 JSON 文本，存放待确认意图等注记。
type ChatMessage struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ChatID    string `gorm:"type:varchar(36);index;not null"`
	Role      string `gorm:"type:varchar(16);not null"`
	Content   string `gorm:"type:text"`
	Metadata  string `gorm:"type:text"`
	CreatedAt time.Time
}
