package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
)

// memJobRepo enforces the same guarded transitions as the Postgres repository.
type memJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	order     []string
	createErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*domain.Job)}
}

func (r *memJobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *job
	r.jobs[job.ID] = &cp
	r.order = append(r.order, job.ID)
	return nil
}

func (r *memJobRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *memJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *memJobRepo) ClaimNext(ctx context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if job, ok := r.jobs[id]; ok && job.State == domain.JobStatePending {
			return r.start(job), nil
		}
	}
	return nil, nil
}

func (r *memJobRepo) Claim(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.State != domain.JobStatePending {
		return nil, domain.ErrInvalidJobTransition
	}
	return r.start(job), nil
}

func (r *memJobRepo) start(job *domain.Job) *domain.Job {
	now := time.Now().UTC()
	job.State = domain.JobStateStarted
	job.StartedAt = &now
	cp := *job
	return &cp
}

func (r *memJobRepo) Complete(ctx context.Context, id string, result json.RawMessage) error {
	return r.finish(id, domain.JobStateSuccess, result, "")
}

func (r *memJobRepo) Fail(ctx context.Context, id string, errMsg string) error {
	return r.finish(id, domain.JobStateFailure, nil, errMsg)
}

func (r *memJobRepo) finish(id string, state domain.JobState, result json.RawMessage, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if !job.State.CanTransitionTo(state) {
		return domain.ErrInvalidJobTransition
	}
	now := time.Now().UTC()
	job.State = state
	job.Result = result
	job.Error = errMsg
	job.FinishedAt = &now
	return nil
}

func (r *memJobRepo) state(id string) domain.JobState {
	job, err := r.GetByID(context.Background(), id)
	if err != nil {
		return ""
	}
	return job.State
}
