package jobs

import (
	"context"

	"github.com/cloo-solutions/testcopilot/internal/domain"
)

// PostgresQueue uses the jobs table itself as the queue.
type PostgresQueue struct {
	repo JobRepository
}

func NewPostgresQueue(repo JobRepository) *PostgresQueue {
	return &PostgresQueue{repo: repo}
}

// Enqueue is a no-op: the PENDING row written by Submit is the queue entry.
func (q *PostgresQueue) Enqueue(ctx context.Context, jobID string) error {
	return nil
}

func (q *PostgresQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	return q.repo.ClaimNext(ctx)
}
