package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/docpilot/backend/internal/service/intentvalidator"
	"github.com/docpilot/backend/internal/utils"
	"k8s.io/klog/v2"
)

// Updater 执行文档更新，生成后校验，校验失败最多重新生成一次。
// 两次都失败则放弃更新，存储中的文档保持原样。
type Updater struct {
	docs        repository.DocumentRepository
	llm         llm.Completer
	prompts     *prompt.Service
	validator   *docvalidator.Validator
	intent      *intentvalidator.Validator
	temperature float64
}

func NewUpdater(docs repository.DocumentRepository, completer llm.Completer, prompts *prompt.Service, validator *docvalidator.Validator, intent *intentvalidator.Validator, temperature float64) *Updater {
	if temperature <= 0 {
		temperature = 0.7
	}
	return &Updater{
		docs:        docs,
		llm:         completer,
		prompts:     prompts,
		validator:   validator,
		intent:      intent,
		temperature: temperature,
	}
}

// Update 更新目标文档。校验最终不通过时返回 (nil, nil)，
// 失败详情写入 decision 的注解字段，不落任何写操作。
func (u *Updater) Update(ctx context.Context, decision *Decision, userMessage, webSearchResults string, date prompt.DateContext) (*model.Document, error) {
	doc, err := u.docs.Get(decision.TargetDocumentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			klog.Warningf("目标文档不存在: %s", decision.TargetDocumentID)
			return nil, nil
		}
		return nil, err
	}

	klog.V(6).Infof("改写文档 %s, edit_scope=%s", doc.ID, decision.EditScope)
	candidate, err := u.generate(ctx, doc, decision, userMessage, webSearchResults, nil, decision.EditScope, date)
	if err != nil {
		return nil, err
	}

	validation := u.validator.ValidateRewrite(doc.Content, candidate, false)
	remaining := validation.Messages()

	if !validation.IsValid && validation.HasCheckableErrors() {
		intentResult := u.intent.Review(ctx, userMessage, validation)
		decision.IntentValidation = &IntentValidation{
			AllIntentional:      intentResult.AllChangesIntentional,
			IntentionalChanges:  describeChanges(intentResult.IntentionalChanges),
			UnintentionalErrors: intentResult.UnintentionalErrors,
			Reasoning:           intentResult.Reasoning,
		}
		// 收窄到用户未要求的错误；技术类错误不可能是本意，始终保留
		remaining = append(technicalMessages(validation), intentResult.UnintentionalErrors...)
		if len(remaining) == 0 {
			klog.V(6).Infof("全部变更均为用户本意，跳过重试直接提交")
			return u.commit(doc, candidate, validation, decision)
		}
	}

	if !validation.IsValid && len(remaining) > 0 {
		retryScope := decision.EditScope
		if retryScope == EditScopeFull {
			// 丢内容的全量重写改用保守的选择性编辑重试
			retryScope = EditScopeSelective
		}
		klog.Warningf("文档改写校验失败，重试一次: errors=%d, scope=%s", len(remaining), retryScope)

		candidate, err = u.generate(ctx, doc, decision, userMessage, webSearchResults, remaining, retryScope, date)
		if err != nil {
			return nil, err
		}
		validation = u.validator.ValidateRewrite(doc.Content, candidate, false)
		if !validation.IsValid {
			decision.ValidationErrors = validation.Messages()
			decision.ValidationWarnings = validation.Warnings
			klog.Errorf("文档 %s 改写重试后仍未通过校验，放弃更新: %v", doc.ID, decision.ValidationErrors)
			return nil, nil
		}
	}

	return u.commit(doc, candidate, validation, decision)
}

func (u *Updater) generate(ctx context.Context, doc *model.Document, decision *Decision, userMessage, webSearchResults string, validationErrors []string, editScope string, date prompt.DateContext) (string, error) {
	rt := &prompt.Runtime{
		UserMessage:         userMessage,
		CurrentContent:      doc.Content,
		StandingInstruction: doc.StandingInstruction,
		WebSearchResults:    webSearchResults,
		ValidationErrors:    validationErrors,
		IntentStatement:     decision.IntentStatement,
		Date:                date,
	}
	promptText := u.prompts.RewritePrompt(rt, editScope)

	content, err := u.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are an expert editor that rewrites documents based on user intent. Return only the markdown content, no explanations."},
		{Role: "user", Content: promptText},
	}, llm.Options{Temperature: u.temperature})
	if err != nil {
		return "", fmt.Errorf("文档内容生成失败: %w", err)
	}
	return utils.ExtractMarkdown(content), nil
}

func (u *Updater) commit(doc *model.Document, content string, validation *docvalidator.Result, decision *Decision) (*model.Document, error) {
	if len(validation.Warnings) > 0 {
		klog.V(6).Infof("改写校验警告: %v", validation.Warnings)
		decision.ValidationWarnings = validation.Warnings
	}
	if err := u.docs.UpdateContent(doc.ID, content); err != nil {
		return nil, err
	}
	updated, err := u.docs.Get(doc.ID)
	if err != nil {
		return nil, err
	}
	klog.V(6).Infof("文档 %s 更新完成", doc.ID)
	return updated, nil
}

func technicalMessages(validation *docvalidator.Result) []string {
	var msgs []string
	for _, e := range validation.Errors {
		if !e.Category.Checkable() {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

func describeChanges(changes []intentvalidator.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = fmt.Sprintf("%s: %s", c.Type, c.Description)
	}
	return out
}
