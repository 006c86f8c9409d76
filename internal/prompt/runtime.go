package prompt

import "time"

// DocumentContext 注入提示词的文档快照
type DocumentContext struct {
	ID      string
	Name    string
	Content string
}

// ProjectContext 项目背景
type ProjectContext struct {
	ID          string
	Name        string
	Description string
}

// Target Stage 1 识别出的目标文档
type Target struct {
	DocumentName string `json:"document_name"`
	DocumentID   string `json:"document_id,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Role         string `json:"role,omitempty"` // primary, secondary
}

// IntentMetadata Stage 1 分类结果的摘要，注入 Stage 2 提示词
type IntentMetadata struct {
	Action          string
	IntentStatement string
	Targets         []Target
}

// HistoryMessage 会话历史中的一条消息
type HistoryMessage struct {
	Role                string
	Content             string
	PendingConfirmation bool
	// PendingAction 待确认决策的动作，确认只对同一动作生效
	PendingAction   string
	IntentStatement string
}

// DateContext 当前日期上下文。由调用方注入，渲染本身不读系统时间。
type DateContext struct {
	Year                   int
	Month                  int
	DateStr                string
	MostRecentDecemberYear int
}

// NewDateContext 从给定时间构造日期上下文
func NewDateContext(now time.Time) DateContext {
	decYear := now.Year()
	if now.Month() < time.December {
		decYear = now.Year() - 1
	}
	return DateContext{
		Year:                   now.Year(),
		Month:                  int(now.Month()),
		DateStr:                now.Format("January 02, 2006"),
		MostRecentDecemberYear: decYear,
	}
}

// Runtime 单次提示词渲染的运行时数据
type Runtime struct {
	UserMessage string
	Documents   []DocumentContext
	Project     *ProjectContext
	Intent      *IntentMetadata
	ChatHistory []HistoryMessage

	CurrentContent      string
	StandingInstruction string
	WebSearchResults    string
	ValidationErrors    []string
	IntentStatement     string
	Context             string

	HistoryWindow int
	Date          DateContext
}
