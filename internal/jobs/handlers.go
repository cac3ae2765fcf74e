package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/testcopilot/internal/domain"
)

type IngestRunner interface {
	Run(ctx context.Context, jobID string, args domain.IngestArgs) (*domain.IngestResult, error)
}

type PlanRunner interface {
	Run(ctx context.Context, jobID string, args domain.PlanGenerateArgs) (*domain.PlanGenerateResult, error)
}

// IngestHandler decodes ingest arguments and runs the ingest pipeline.
func IngestHandler(r IngestRunner) Handler {
	return HandlerFunc(func(ctx context.Context, job *domain.Job) (any, error) {
		var args domain.IngestArgs
		if err := json.Unmarshal(job.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid ingest arguments: %w", err)
		}
		return r.Run(ctx, job.ID, args)
	})
}

// PlanHandler decodes plan-generate arguments and runs the plan pipeline.
func PlanHandler(r PlanRunner) Handler {
	return HandlerFunc(func(ctx context.Context, job *domain.Job) (any, error) {
		var args domain.PlanGenerateArgs
		if err := json.Unmarshal(job.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid plan arguments: %w", err)
		}
		return r.Run(ctx, job.ID, args)
	})
}
