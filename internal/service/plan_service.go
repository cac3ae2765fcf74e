package service

import (
	"context"
	"log/slog"

	"github.com/cloo-solutions/testcopilot/internal/domain"
)

// PlanService requests plan generation and reads stored plans.
type PlanService struct {
	projects *ProjectService
	plans    TestPlanRepository
	jobs     JobSubmitter
}

func NewPlanService(projects *ProjectService, plans TestPlanRepository, jobs JobSubmitter) *PlanService {
	return &PlanService{projects: projects, plans: plans, jobs: jobs}
}

// Request submits a plan-generate job for the project.
func (s *PlanService) Request(ctx context.Context, projectID string) (*domain.Job, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	job, err := s.jobs.Submit(ctx, domain.JobKindPlanGenerate, domain.PlanGenerateArgs{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "plan job submitted", "project_id", projectID, "job_id", job.ID)
	return job, nil
}

// Latest returns the most recent plan, or ErrTestPlanNotFound.
func (s *PlanService) Latest(ctx context.Context, projectID string) (*domain.TestPlan, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.plans.LatestByProject(ctx, projectID)
}
