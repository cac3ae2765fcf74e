package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/google/uuid"
)

// JobRepository persists jobs and guards their state transitions. Claim,
// Complete and Fail only touch rows in the expected prior state and return
// domain.ErrInvalidJobTransition otherwise.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	// ClaimNext moves the oldest PENDING job to STARTED, or returns nil when there is none.
	ClaimNext(ctx context.Context) (*domain.Job, error)
	Claim(ctx context.Context, id string) (*domain.Job, error)
	Complete(ctx context.Context, id string, result json.RawMessage) error
	Fail(ctx context.Context, id string, errMsg string) error
}

// Queue hands job ids from submitters to workers.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	// Dequeue returns a job already moved to STARTED, or nil when idle.
	Dequeue(ctx context.Context) (*domain.Job, error)
}

// Orchestrator accepts job submissions and answers status queries. It never
// runs jobs itself.
type Orchestrator struct {
	repo  JobRepository
	queue Queue
	now   func() time.Time
	newID func() string
}

func NewOrchestrator(repo JobRepository, queue Queue) *Orchestrator {
	return &Orchestrator{
		repo:  repo,
		queue: queue,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Submit records a PENDING job and enqueues it. It does not wait for execution.
func (o *Orchestrator) Submit(ctx context.Context, kind domain.JobKind, args any) (*domain.Job, error) {
	if !domain.IsValidJobKind(kind) {
		return nil, domain.ErrInvalidJobKind
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job arguments: %w", err)
	}

	job := domain.NewJob(o.newID(), kind, raw, o.now())
	if err := o.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := o.queue.Enqueue(ctx, job.ID); err != nil {
		if derr := o.repo.Delete(ctx, job.ID); derr != nil {
			slog.ErrorContext(ctx, "failed to remove unqueued job", "job_id", job.ID, "error", derr)
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	slog.DebugContext(ctx, "job submitted", "job_id", job.ID, "kind", kind)
	return job, nil
}

// Status returns the polling view of a job.
func (o *Orchestrator) Status(ctx context.Context, id string) (*domain.JobSnapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrJobNotFound
	}
	job, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := job.Snapshot()
	return &snap, nil
}
