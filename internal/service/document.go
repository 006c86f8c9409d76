package service

import (
	"fmt"

	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// DocumentService 文档直接维护入口，与决策流水线共用同一套校验规则。
type DocumentService struct {
	docs      repository.DocumentRepository
	validator *docvalidator.Validator
}

func NewDocumentService(docs repository.DocumentRepository, validator *docvalidator.Validator) *DocumentService {
	return &DocumentService{docs: docs, validator: validator}
}

func (s *DocumentService) Create(projectID, name, standingInstruction, content string) (*model.Document, error) {
	validation := s.validator.ValidateCreate(name, content)
	if !validation.IsValid {
		return nil, fmt.Errorf("文档校验失败: %v", validation.Messages())
	}
	existingID, exists, err := s.docs.ExistsByNameInProject(projectID, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("文档名已存在: %s (id: %s)", name, existingID)
	}
	doc := &model.Document{
		ID:                  uuid.NewString(),
		ProjectID:           projectID,
		Name:                name,
		StandingInstruction: standingInstruction,
		Content:             content,
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}
	klog.V(6).Infof("文档 %s 创建完成: %s", doc.ID, name)
	return doc, nil
}

func (s *DocumentService) Get(id string) (*model.Document, error) {
	return s.docs.Get(id)
}

func (s *DocumentService) ListByProject(projectID string) ([]model.Document, error) {
	return s.docs.ListByProject(projectID)
}

// UpdateContent 直接更新内容。人工编辑不走结构校验，只做基础合法性检查。
func (s *DocumentService) UpdateContent(id, content string) (*model.Document, error) {
	if !docvalidator.IsValidMarkdown(content) {
		return nil, fmt.Errorf("内容不是合法的 markdown")
	}
	if err := s.docs.UpdateContent(id, content); err != nil {
		return nil, err
	}
	return s.docs.Get(id)
}

func (s *DocumentService) Delete(id string) error {
	return s.docs.Delete(id)
}
