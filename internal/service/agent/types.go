// Package agent 两阶段意图决策流水线与动作执行。
package agent

import (
	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/service/websearch"
)

// Action 决策动作。消费端必须对所有取值做穷举分支。
type Action string

const (
	ActionUpdateDocument     Action = "UPDATE_DOCUMENT"
	ActionCreateDocument     Action = "CREATE_DOCUMENT"
	ActionDeleteDocument     Action = "DELETE_DOCUMENT"
	ActionShowDocument       Action = "SHOW_DOCUMENT"
	ActionListDocuments      Action = "LIST_DOCUMENTS"
	ActionAnswerOnly         Action = "ANSWER_ONLY"
	ActionNeedsClarification Action = "NEEDS_CLARIFICATION"
)

// ParseAction 未知动作一律归为需要澄清
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionUpdateDocument, ActionCreateDocument, ActionDeleteDocument,
		ActionShowDocument, ActionListDocuments, ActionAnswerOnly, ActionNeedsClarification:
		return Action(s), true
	}
	return ActionNeedsClarification, false
}

const (
	EditScopeSelective = "selective"
	EditScopeFull      = "full"
)

// IntentResult Stage 1 分类结果
type IntentResult struct {
	Action          Action          `json:"action"`
	Targets         []prompt.Target `json:"targets,omitempty"`
	NewDocumentName string          `json:"new_document_name,omitempty"`
	Confidence      float64         `json:"confidence"`
	IntentStatement string          `json:"intent_statement,omitempty"`
	Greeting        bool            `json:"-"`
}

// PrimaryTarget 返回已解析到文档 ID 的主目标，没有则返回 nil。
func (r *IntentResult) PrimaryTarget() *prompt.Target {
	for i := range r.Targets {
		if r.Targets[i].Role == "primary" && r.Targets[i].DocumentID != "" {
			return &r.Targets[i]
		}
	}
	return nil
}

// CreationError 创建失败的可恢复错误
type CreationError struct {
	Type               string `json:"type"` // validation, duplicate_name, unknown
	Message            string `json:"message"`
	DocumentName       string `json:"document_name,omitempty"`
	ExistingDocumentID string `json:"existing_document_id,omitempty"`
}

// IntentValidation 意图校验结论，挂在决策上供格式化层展示
type IntentValidation struct {
	AllIntentional      bool     `json:"all_intentional"`
	IntentionalChanges  []string `json:"intentional_changes,omitempty"`
	UnintentionalErrors []string `json:"unintentional_errors,omitempty"`
	Reasoning           string   `json:"reasoning,omitempty"`
}

// Decision Stage 2 产出的完整决策。执行后不再改动作字段，
// 校验与创建失败只写入注解字段。
type Decision struct {
	Action              Action `json:"action"`
	TargetDocumentID    string `json:"target_document_id,omitempty"`
	DocumentName        string `json:"document_name,omitempty"`
	DocumentContent     string `json:"document_content,omitempty"`
	StandingInstruction string `json:"standing_instruction,omitempty"`
	EditScope           string `json:"edit_scope,omitempty"`

	NeedsWebSearch bool   `json:"needs_web_search,omitempty"`
	SearchQuery    string `json:"search_query,omitempty"`

	PendingConfirmation   bool   `json:"pending_confirmation,omitempty"`
	ConfirmationPrompt    string `json:"confirmation_prompt,omitempty"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`

	IntentStatement        string `json:"intent_statement,omitempty"`
	Reasoning              string `json:"reasoning,omitempty"`
	ConversationalResponse string `json:"conversational_response,omitempty"`
	ChangeSummary          string `json:"change_summary,omitempty"`
	ContentSummary         string `json:"content_summary,omitempty"`

	ValidationErrors   []string          `json:"validation_errors,omitempty"`
	ValidationWarnings []string          `json:"validation_warnings,omitempty"`
	CreationError      *CreationError    `json:"creation_error,omitempty"`
	IntentValidation   *IntentValidation `json:"intent_validation,omitempty"`
}

// ActionResult 一次流水线执行的完整结果
type ActionResult struct {
	Decision           *Decision         `json:"decision"`
	UpdatedDocument    *model.Document   `json:"updated_document,omitempty"`
	CreatedDocument    *model.Document   `json:"created_document,omitempty"`
	DeletedDocumentID  string            `json:"deleted_document_id,omitempty"`
	WebSearchPerformed bool              `json:"web_search_performed"`
	WebSearchResults   string            `json:"web_search_results,omitempty"`
	WebSearchResult    *websearch.Result `json:"web_search_result,omitempty"`
}
