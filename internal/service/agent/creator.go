package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/docpilot/backend/internal/service/websearch"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Creator 执行文档创建。名称冲突与校验失败都是可恢复错误，
// 写入 decision.CreationError 并保证零写入。
type Creator struct {
	docs      repository.DocumentRepository
	validator *docvalidator.Validator
	search    *websearch.Service
}

func NewCreator(docs repository.DocumentRepository, validator *docvalidator.Validator, search *websearch.Service) *Creator {
	return &Creator{docs: docs, validator: validator, search: search}
}

// Create 创建新文档。失败时返回 (nil, searchResult)，详情在 decision.CreationError。
func (c *Creator) Create(ctx context.Context, decision *Decision, projectID, userMessage string, documents []prompt.DocumentContext, project *prompt.ProjectContext) (*model.Document, *websearch.Result, error) {
	name := extractDocumentName(decision, userMessage, len(documents))
	klog.V(6).Infof("创建文档: name=%q, project=%s", name, projectID)

	content := decision.DocumentContent

	validation := c.validator.ValidateCreate(name, content)
	if !validation.IsValid {
		msgs := validation.Messages()
		decision.CreationError = &CreationError{
			Type:         "validation",
			Message:      fmt.Sprintf("Document creation validation failed: %s", strings.Join(msgs, ", ")),
			DocumentName: name,
		}
		klog.Warningf("文档创建校验失败: %v", msgs)
		return nil, nil, nil
	}

	existingID, exists, err := c.docs.ExistsByNameInProject(projectID, name, "")
	if err != nil {
		return nil, nil, err
	}
	if exists {
		decision.CreationError = &CreationError{
			Type:               "duplicate_name",
			Message:            fmt.Sprintf("A document named %q already exists in this project", name),
			DocumentName:       name,
			ExistingDocumentID: existingID,
		}
		klog.Warningf("文档名冲突: name=%q, existing=%s", name, existingID)
		return nil, nil, nil
	}

	var searchResult *websearch.Result
	if decision.NeedsWebSearch && decision.SearchQuery != "" && c.search != nil {
		projectName := "Unknown"
		if project != nil {
			projectName = project.Name
		}
		searchResult = c.search.SearchWithRetry(ctx, decision.SearchQuery, userMessage,
			fmt.Sprintf("Project: %s, Creating document: %s", projectName, name))
		if best := searchResult.BestResults(); best != "" {
			if content != "" {
				content = content + "\n\n" + best
			} else {
				content = best
			}
		}
	}

	doc := &model.Document{
		ID:                  uuid.NewString(),
		ProjectID:           projectID,
		Name:                name,
		StandingInstruction: decision.StandingInstruction,
		Content:             content,
	}
	if err := c.docs.Create(doc); err != nil {
		decision.CreationError = &CreationError{
			Type:         "unknown",
			Message:      err.Error(),
			DocumentName: name,
		}
		klog.Errorf("文档创建失败: %v", err)
		return nil, searchResult, nil
	}
	klog.V(6).Infof("文档 %s 创建完成", doc.ID)
	return doc, searchResult, nil
}
