package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/google/uuid"
)

type ProjectService struct {
	projects ProjectRepository
	now      Clock
	newID    func() string
}

func NewProjectService(projects ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects, now: utcNow, newID: uuid.NewString}
}

func (s *ProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	project := domain.NewProject(s.newID(), strings.TrimSpace(name), s.now())
	if err := domain.ValidateProject(project); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid project", err)
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Get treats malformed ids as missing projects.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrProjectNotFound
	}
	return s.projects.GetByID(ctx, id)
}

func (s *ProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	return projects, nil
}
