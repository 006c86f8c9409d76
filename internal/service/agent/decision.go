package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/utils"
	"k8s.io/klog/v2"
)

// DecisionEngine Stage 2 决策引擎
type DecisionEngine struct {
	llm         llm.Completer
	prompts     *prompt.Service
	temperature float64
}

func NewDecisionEngine(completer llm.Completer, prompts *prompt.Service, temperature float64) *DecisionEngine {
	if temperature <= 0 {
		temperature = 0.5
	}
	return &DecisionEngine{llm: completer, prompts: prompts, temperature: temperature}
}

type decisionWire struct {
	ShouldEdit          bool   `json:"should_edit"`
	ShouldCreate        bool   `json:"should_create"`
	ShouldDelete        bool   `json:"should_delete"`
	DocumentID          string `json:"document_id"`
	DocumentName        string `json:"document_name"`
	DocumentContent     string `json:"document_content"`
	StandingInstruction string `json:"standing_instruction"`
	EditScope           string `json:"edit_scope"`

	NeedsClarification  bool   `json:"needs_clarification"`
	PendingConfirmation bool   `json:"pending_confirmation"`
	NeedsWebSearch      bool   `json:"needs_web_search"`
	SearchQuery         string `json:"search_query"`

	ClarificationQuestion  string `json:"clarification_question"`
	ConfirmationPrompt     string `json:"confirmation_prompt"`
	IntentStatement        string `json:"intent_statement"`
	Reasoning              string `json:"reasoning"`
	ConversationalResponse string `json:"conversational_response"`
	ChangeSummary          string `json:"change_summary"`
	ContentSummary         string `json:"content_summary"`
}

// staleTopicWords 文档主题本身与时效相关时强制走检索，
// 即便当前请求只是"写详细点"。过期风险属于文档而不属于动词。
var staleTopicWords = []string{"latest", "current", "recent", "up-to-date", "news"}

// Decide 在 Stage 1 结果之上产出完整决策
func (e *DecisionEngine) Decide(ctx context.Context, userMessage string, documents []prompt.DocumentContext, project *prompt.ProjectContext, intent *IntentResult, history []prompt.HistoryMessage, date prompt.DateContext) (*Decision, error) {
	meta := &prompt.IntentMetadata{
		Action:          string(intent.Action),
		IntentStatement: intent.IntentStatement,
		Targets:         intent.Targets,
	}
	promptText := e.prompts.DecisionPrompt(userMessage, documents, project, intentTypeFor(intent.Action), meta, date)

	response, err := e.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant that helps users manage documents. You can have conversations and make decisions about editing. Always respond with valid JSON."},
		{Role: "user", Content: promptText},
	}, llm.Options{Temperature: e.temperature, JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("决策生成失败: %w", err)
	}

	var wire decisionWire
	if err := json.Unmarshal([]byte(utils.ExtractJSON(response)), &wire); err != nil {
		return nil, fmt.Errorf("决策结果解析失败: %w", err)
	}

	decision := e.fromWire(&wire, intent)
	e.applyGuards(decision, userMessage, documents, history)

	klog.V(6).Infof("决策: action=%s, target=%s, search=%v, confirm=%v",
		decision.Action, decision.TargetDocumentID, decision.NeedsWebSearch, decision.PendingConfirmation)
	return decision, nil
}

// intentTypeFor 把 Stage 1 动作映射到决策模板类型
func intentTypeFor(action Action) string {
	switch action {
	case ActionUpdateDocument:
		return "edit"
	case ActionCreateDocument:
		return "create"
	case ActionDeleteDocument:
		return "delete"
	case ActionNeedsClarification:
		return "clarify"
	case ActionShowDocument, ActionListDocuments, ActionAnswerOnly:
		return "conversation"
	}
	return "conversation"
}

// fromWire 布尔标志按 edit > create > delete > clarify 的优先级折叠成单一动作
func (e *DecisionEngine) fromWire(wire *decisionWire, intent *IntentResult) *Decision {
	action := ActionAnswerOnly
	switch {
	case wire.ShouldEdit:
		action = ActionUpdateDocument
	case wire.ShouldCreate:
		action = ActionCreateDocument
	case wire.ShouldDelete:
		action = ActionDeleteDocument
	case wire.NeedsClarification:
		action = ActionNeedsClarification
	case intent.Action == ActionShowDocument || intent.Action == ActionListDocuments:
		action = intent.Action
	}

	scope := wire.EditScope
	if action == ActionUpdateDocument && scope != EditScopeSelective && scope != EditScopeFull {
		// 语义不明时保守按选择性编辑处理
		scope = EditScopeSelective
	}

	intentStatement := wire.IntentStatement
	if intentStatement == "" {
		intentStatement = intent.IntentStatement
	}

	// Stage 2 未给出目标时回落到 Stage 1 解析出的主目标，
	// 必须在缺目标降级判定之前完成
	targetID := wire.DocumentID
	if targetID == "" && action == ActionUpdateDocument {
		if t := intent.PrimaryTarget(); t != nil {
			targetID = t.DocumentID
		}
	}

	return &Decision{
		Action:                 action,
		TargetDocumentID:       targetID,
		DocumentName:           wire.DocumentName,
		DocumentContent:        wire.DocumentContent,
		StandingInstruction:    wire.StandingInstruction,
		EditScope:              scope,
		NeedsWebSearch:         wire.NeedsWebSearch,
		SearchQuery:            wire.SearchQuery,
		PendingConfirmation:    wire.PendingConfirmation,
		ConfirmationPrompt:     wire.ConfirmationPrompt,
		ClarificationQuestion:  wire.ClarificationQuestion,
		IntentStatement:        intentStatement,
		Reasoning:              wire.Reasoning,
		ConversationalResponse: wire.ConversationalResponse,
		ChangeSummary:          wire.ChangeSummary,
		ContentSummary:         wire.ContentSummary,
	}
}

// applyGuards 在 LLM 输出之上执行不可协商的规则
func (e *DecisionEngine) applyGuards(decision *Decision, userMessage string, documents []prompt.DocumentContext, history []prompt.HistoryMessage) {
	switch decision.Action {
	case ActionUpdateDocument:
		if decision.TargetDocumentID == "" {
			klog.Warningf("编辑决策缺少目标文档，降级为澄清")
			decision.Action = ActionNeedsClarification
			if decision.ClarificationQuestion == "" {
				decision.ClarificationQuestion = "Which document would you like me to update?"
			}
			return
		}
		if doc := findDocument(documents, decision.TargetDocumentID); doc != nil && hasStaleTopic(doc.Name) {
			if !decision.NeedsWebSearch {
				klog.V(6).Infof("文档 %q 主题有时效性，强制检索", doc.Name)
				decision.NeedsWebSearch = true
			}
			if decision.SearchQuery == "" {
				decision.SearchQuery = doc.Name
			}
		}
	case ActionDeleteDocument:
		if !decision.PendingConfirmation && !confirmedInHistory(history, userMessage, ActionDeleteDocument) {
			klog.V(6).Infof("删除动作未经确认，强制进入确认流程")
			decision.PendingConfirmation = true
			if decision.ConfirmationPrompt == "" {
				decision.ConfirmationPrompt = fmt.Sprintf("Are you sure you want to delete %q? This cannot be undone.", decision.DocumentName)
			}
		}
	case ActionCreateDocument, ActionShowDocument, ActionListDocuments, ActionAnswerOnly, ActionNeedsClarification:
	}
}

func findDocument(documents []prompt.DocumentContext, id string) *prompt.DocumentContext {
	for i := range documents {
		if documents[i].ID == id {
			return &documents[i]
		}
	}
	return nil
}

func hasStaleTopic(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range staleTopicWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var affirmativeWords = map[string]bool{
	"yes": true, "ok": true, "okay": true, "sure": true, "yeah": true,
	"yep": true, "proceed": true, "go ahead": true, "do it": true, "confirm": true,
}

// confirmedInHistory 最近一条助手消息带有同动作的待确认记录，
// 且当前消息是肯定答复时成立。待确认的是别的动作（比如一次大改）
// 不能当作删除确认。
func confirmedInHistory(history []prompt.HistoryMessage, userMessage string, action Action) bool {
	if !affirmativeWords[strings.ToLower(strings.TrimRight(strings.TrimSpace(userMessage), "!. "))] {
		return false
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			return history[i].PendingConfirmation && history[i].PendingAction == string(action)
		}
	}
	return false
}
