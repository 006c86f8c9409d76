package repository

import (
	"errors"

	"github.com/docpilot/backend/internal/model"
	"gorm.io/gorm"
)

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) Get(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) GetByName(projectID, name string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("project_id = ? AND LOWER(name) = LOWER(?)", projectID, name).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) UpdateContent(id, content string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("content", content).Error
}

func (r *documentRepository) Save(doc *model.Document) error {
	return r.db.Save(doc).Error
}

func (r *documentRepository) ListByProject(projectID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at").
		Find(&docs).Error
	return docs, err
}

// ExistsByNameInProject 按名称（忽略大小写）查重，返回已存在文档的 ID。
func (r *documentRepository) ExistsByNameInProject(projectID, name, excludeID string) (string, bool, error) {
	var doc model.Document
	q := r.db.Where("project_id = ? AND LOWER(name) = LOWER(?)", projectID, name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return doc.ID, true, nil
}

func (r *documentRepository) Delete(id string) error {
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}
