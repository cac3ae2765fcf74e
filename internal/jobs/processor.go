package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/logging"
	"github.com/cloo-solutions/testcopilot/internal/telemetry"
)

// Handler runs one kind of job and returns its result payload.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job) (any, error)
}

type HandlerFunc func(ctx context.Context, job *domain.Job) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, job *domain.Job) (any, error) {
	return f(ctx, job)
}

// Processor takes one job off the queue, runs it and records the terminal state.
// Failed jobs are never retried.
type Processor struct {
	queue    Queue
	repo     JobRepository
	handlers map[domain.JobKind]Handler
}

func NewProcessor(queue Queue, repo JobRepository, handlers map[domain.JobKind]Handler) *Processor {
	return &Processor{queue: queue, repo: repo, handlers: handlers}
}

// ProcessNext runs at most one job and reports whether one was dequeued.
// The job itself runs on a context that outlives ctx cancellation, so a
// shutdown lets in-flight work finish.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	job, err := p.queue.Dequeue(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to dequeue job: %w", err)
	}
	if job == nil {
		return false, nil
	}
	return true, p.run(context.WithoutCancel(ctx), job)
}

func (p *Processor) run(ctx context.Context, job *domain.Job) error {
	ctx = logging.WithJobID(ctx, job.ID)
	ctx, tx := telemetry.StartTransaction(ctx, "job."+string(job.Kind), telemetry.SpanAttributes{JobID: job.ID})
	defer tx.End()
	start := time.Now()
	slog.InfoContext(ctx, "job started", "kind", job.Kind)

	result, err := p.execute(ctx, job)
	if err == nil {
		var payload []byte
		payload, err = json.Marshal(result)
		if err == nil {
			if cerr := p.repo.Complete(ctx, job.ID, payload); cerr != nil {
				return fmt.Errorf("failed to record job success: %w", cerr)
			}
			slog.InfoContext(ctx, "job succeeded", "kind", job.Kind, "duration", time.Since(start))
			return nil
		}
		err = fmt.Errorf("failed to encode job result: %w", err)
	}

	tx.SetError(err)
	telemetry.CaptureError(ctx, err)
	slog.ErrorContext(ctx, "job failed", "kind", job.Kind, "duration", time.Since(start), "error", err)
	if ferr := p.repo.Fail(ctx, job.ID, err.Error()); ferr != nil {
		return fmt.Errorf("failed to record job failure: %w", ferr)
	}
	return nil
}

func (p *Processor) execute(ctx context.Context, job *domain.Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("job panicked: %v", r)
		}
	}()

	h, ok := p.handlers[job.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidJobKind, job.Kind)
	}
	return h.Handle(ctx, job)
}
