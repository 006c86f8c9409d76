package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docpilot/backend/config"
	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/docpilot/backend/internal/service/intentvalidator"
	"github.com/docpilot/backend/internal/service/websearch"
	"github.com/docpilot/backend/internal/utils"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Service 决策流水线编排：分类意图、产出决策、按需检索、执行动作。
type Service struct {
	projects repository.ProjectRepository
	docs     repository.DocumentRepository
	chats    repository.ChatRepository

	llm     llm.Completer
	prompts *prompt.Service
	search  *websearch.Service

	classifier *IntentClassifier
	engine     *DecisionEngine
	updater    *Updater
	creator    *Creator

	cfg *config.AgentConfig
	now func() time.Time
}

func NewService(
	projects repository.ProjectRepository,
	docs repository.DocumentRepository,
	chats repository.ChatRepository,
	completer llm.Completer,
	search *websearch.Service,
	cfg *config.AgentConfig,
) *Service {
	prompts := prompt.NewService(cfg.IntentHistoryWindow)
	validator := docvalidator.New(docvalidator.Thresholds{
		SectionLossErrorPct: cfg.SectionLossErrorPct,
		HeadingCountFloor:   cfg.HeadingCountFloor,
		LengthFloor:         cfg.LengthFloor,
	})
	intentVal := intentvalidator.New(completer, cfg.IntentTemperature)
	return &Service{
		projects:   projects,
		docs:       docs,
		chats:      chats,
		llm:        completer,
		prompts:    prompts,
		search:     search,
		classifier: NewIntentClassifier(completer, prompts, cfg.IntentTemperature),
		engine:     NewDecisionEngine(completer, prompts, cfg.DecisionTemperature),
		updater:    NewUpdater(docs, completer, prompts, validator, intentVal, cfg.RewriteTemperature),
		creator:    NewCreator(docs, validator, search),
		cfg:        cfg,
		now:        time.Now,
	}
}

// ProcessMessage 执行一次完整的流水线。部分失败（校验放弃、检索降级、
// 名称冲突）体现在决策注解上，不作为错误返回。
func (s *Service) ProcessMessage(ctx context.Context, projectID, userMessage string, history []prompt.HistoryMessage) (*ActionResult, error) {
	project, documents, err := s.loadProjectContext(projectID)
	if err != nil {
		return nil, err
	}
	date := prompt.NewDateContext(s.now())

	intent, err := s.classifier.Classify(ctx, userMessage, documents, project, history)
	if err != nil {
		return nil, err
	}

	if intent.Greeting {
		// 寒暄短路，不走 Stage 2
		reply, err := s.conversationalReply(ctx, userMessage, "", "", date)
		if err != nil {
			return nil, err
		}
		return &ActionResult{
			Decision: &Decision{
				Action:                 ActionAnswerOnly,
				IntentStatement:        intent.IntentStatement,
				ConversationalResponse: reply,
			},
		}, nil
	}

	decision, err := s.engine.Decide(ctx, userMessage, documents, project, intent, history, date)
	if err != nil {
		return nil, err
	}
	result := &ActionResult{Decision: decision}

	// 创建动作的检索由 Creator 自理，带上文档名做上下文
	if decision.NeedsWebSearch && decision.SearchQuery != "" && decision.Action != ActionCreateDocument && s.search != nil {
		projectName := "Unknown"
		if project != nil {
			projectName = project.Name
		}
		searchResult := s.search.SearchWithRetry(ctx, decision.SearchQuery, userMessage, "Project: "+projectName)
		result.WebSearchResult = searchResult
		result.WebSearchResults = searchResult.BestResults()
		result.WebSearchPerformed = len(searchResult.Attempts) > 0
	}

	switch decision.Action {
	case ActionUpdateDocument:
		updated, err := s.updater.Update(ctx, decision, userMessage, result.WebSearchResults, date)
		if err != nil {
			return nil, err
		}
		result.UpdatedDocument = updated

	case ActionCreateDocument:
		created, searchResult, err := s.creator.Create(ctx, decision, projectID, userMessage, documents, project)
		if err != nil {
			return nil, err
		}
		result.CreatedDocument = created
		if searchResult != nil {
			result.WebSearchResult = searchResult
			result.WebSearchResults = searchResult.BestResults()
			result.WebSearchPerformed = len(searchResult.Attempts) > 0
		}

	case ActionDeleteDocument:
		if !decision.PendingConfirmation && decision.TargetDocumentID != "" {
			if err := s.docs.Delete(decision.TargetDocumentID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			result.DeletedDocumentID = decision.TargetDocumentID
			klog.V(6).Infof("文档 %s 已删除", decision.TargetDocumentID)
		}

	case ActionShowDocument, ActionListDocuments, ActionAnswerOnly:
		if decision.ConversationalResponse == "" {
			context_ := documentsOverview(documents)
			// 展示请求把目标文档内容带进上下文，仅有名字列表是答不出来的
			if decision.Action == ActionShowDocument {
				targetID := decision.TargetDocumentID
				if targetID == "" {
					if t := intent.PrimaryTarget(); t != nil {
						targetID = t.DocumentID
					}
				}
				if doc := findDocument(documents, targetID); doc != nil {
					context_ = fmt.Sprintf("Document %q:\n%s", doc.Name, doc.Content)
				}
			}
			reply, err := s.conversationalReply(ctx, userMessage, context_, result.WebSearchResults, date)
			if err != nil {
				return nil, err
			}
			decision.ConversationalResponse = reply
		}

	case ActionNeedsClarification:
		// 澄清问题已在决策里，无需执行
	}

	return result, nil
}

func (s *Service) loadProjectContext(projectID string) (*prompt.ProjectContext, []prompt.DocumentContext, error) {
	if projectID == "" {
		return nil, nil, nil
	}
	proj, err := s.projects.Get(projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	docs, err := s.docs.ListByProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	contexts := make([]prompt.DocumentContext, len(docs))
	for i, d := range docs {
		contexts[i] = prompt.DocumentContext{ID: d.ID, Name: d.Name, Content: d.Content}
	}
	return &prompt.ProjectContext{ID: proj.ID, Name: proj.Name, Description: proj.Description}, contexts, nil
}

func (s *Service) conversationalReply(ctx context.Context, userMessage, context_, webSearchResults string, date prompt.DateContext) (string, error) {
	promptText := s.prompts.ConversationalPrompt(userMessage, context_, webSearchResults, date)
	reply, err := s.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are a helpful, friendly assistant that helps users manage their documents. Respond naturally and conversationally."},
		{Role: "user", Content: promptText},
	}, llm.Options{Temperature: s.cfg.RewriteTemperature})
	if err != nil {
		return "", fmt.Errorf("对话回复生成失败: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func documentsOverview(documents []prompt.DocumentContext) string {
	if len(documents) == 0 {
		return "The project has no documents yet."
	}
	names := make([]string, len(documents))
	for i, d := range documents {
		names[i] = d.Name
	}
	return "Documents in this project: " + strings.Join(names, ", ")
}

// ---------------------------------------------------------------------------
// 会话编排

// ChatOutcome 带会话存档的流水线结果
type ChatOutcome struct {
	Chat   *model.Chat        `json:"chat"`
	Reply  *model.ChatMessage `json:"reply"`
	Result *ActionResult      `json:"result"`
}

// messageMetadata 随助手消息存档的决策快照，供后续轮次做确认判定
type messageMetadata struct {
	Decision           *Decision `json:"decision,omitempty"`
	WebSearchPerformed bool      `json:"web_search_performed,omitempty"`
	DocumentUpdated    bool      `json:"document_updated,omitempty"`
}

// ProcessWithChat 完整的会话式处理：取或建会话、存用户消息、
// 跑流水线、存助手回复。
func (s *Service) ProcessWithChat(ctx context.Context, chatToken, projectID, message string) (*ChatOutcome, error) {
	chat, err := s.resolveChat(chatToken, projectID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.ChatMessage{
		ID:      uuid.NewString(),
		ChatID:  chat.ID,
		Role:    model.RoleUser,
		Content: message,
	}
	if err := s.chats.AddMessage(userMsg); err != nil {
		return nil, err
	}

	history, err := s.buildHistory(chat.ID, userMsg.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.ProcessMessage(ctx, chat.ProjectID, message, history)
	if err != nil {
		return nil, err
	}

	reply := &model.ChatMessage{
		ID:      uuid.NewString(),
		ChatID:  chat.ID,
		Role:    model.RoleAssistant,
		Content: formatReply(result),
		Metadata: utils.ToJSON(messageMetadata{
			Decision:           result.Decision,
			WebSearchPerformed: result.WebSearchPerformed,
			DocumentUpdated:    result.UpdatedDocument != nil,
		}),
	}
	if err := s.chats.AddMessage(reply); err != nil {
		return nil, err
	}

	return &ChatOutcome{Chat: chat, Reply: reply, Result: result}, nil
}

func (s *Service) resolveChat(chatToken, projectID string) (*model.Chat, error) {
	if chatToken != "" {
		chat, err := s.chats.GetByToken(chatToken)
		if err == nil {
			if projectID == "" || chat.ProjectID == projectID {
				return chat, nil
			}
			// 会话属于其他项目，为本项目新开一个
			klog.V(6).Infof("会话 %s 属于项目 %s，为项目 %s 新建会话", chat.ID, chat.ProjectID, projectID)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if projectID == "" {
		return nil, fmt.Errorf("创建会话需要 project_id")
	}
	chat := &model.Chat{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Token:     uuid.NewString(),
	}
	if err := s.chats.Create(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// buildHistory 取最近消息构建历史，排除刚写入的当前用户消息
func (s *Service) buildHistory(chatID, excludeMessageID string) ([]prompt.HistoryMessage, error) {
	msgs, err := s.chats.GetMessages(chatID, s.cfg.IntentHistoryWindow+1)
	if err != nil {
		return nil, err
	}
	history := make([]prompt.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == excludeMessageID {
			continue
		}
		h := prompt.HistoryMessage{Role: m.Role, Content: m.Content}
		if m.Metadata != "" {
			var meta messageMetadata
			if err := json.Unmarshal([]byte(m.Metadata), &meta); err == nil && meta.Decision != nil {
				h.PendingConfirmation = meta.Decision.PendingConfirmation
				if meta.Decision.PendingConfirmation {
					h.PendingAction = string(meta.Decision.Action)
				}
				h.IntentStatement = meta.Decision.IntentStatement
			}
		}
		history = append(history, h)
	}
	return history, nil
}

// formatReply 从决策选出面向用户的回复文本
func formatReply(result *ActionResult) string {
	d := result.Decision
	switch {
	case d.Action == ActionNeedsClarification && d.ClarificationQuestion != "":
		return d.ClarificationQuestion
	case d.PendingConfirmation && d.ConfirmationPrompt != "":
		return d.ConfirmationPrompt
	case d.CreationError != nil:
		if d.CreationError.Type == "duplicate_name" {
			return fmt.Sprintf("%s. Would you like me to update it instead?", d.CreationError.Message)
		}
		return "I couldn't create the document: " + d.CreationError.Message
	case len(d.ValidationErrors) > 0 && result.UpdatedDocument == nil && d.Action == ActionUpdateDocument:
		return "I wasn't able to apply that change safely, so the document was left untouched. " +
			"Issues: " + strings.Join(d.ValidationErrors, "; ")
	case result.UpdatedDocument != nil && d.ChangeSummary != "":
		return d.ChangeSummary
	case result.CreatedDocument != nil && d.ContentSummary != "":
		return d.ContentSummary
	case result.CreatedDocument != nil:
		return fmt.Sprintf("I created the document %q.", result.CreatedDocument.Name)
	case result.UpdatedDocument != nil:
		return fmt.Sprintf("I updated the document %q.", result.UpdatedDocument.Name)
	case result.DeletedDocumentID != "":
		return "The document has been deleted."
	case d.ConversationalResponse != "":
		return d.ConversationalResponse
	case d.Reasoning != "":
		return d.Reasoning
	}
	return "Done."
}
