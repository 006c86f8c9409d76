package service

import (
	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/repository"
	"github.com/google/uuid"
)

// ProjectService 项目维护
type ProjectService struct {
	projects repository.ProjectRepository
}

func NewProjectService(projects repository.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

func (s *ProjectService) Create(name, description string) (*model.Project, error) {
	p := &model.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
	if err := s.projects.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Get(id string) (*model.Project, error) {
	return s.projects.Get(id)
}

func (s *ProjectService) List() ([]model.Project, error) {
	return s.projects.List()
}

func (s *ProjectService) Delete(id string) error {
	return s.projects.Delete(id)
}
