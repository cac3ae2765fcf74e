package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, kind, state, args, result, error, created_at, started_at, finished_at`

// JobRepository stores jobs. Every state change is guarded on the prior
// state, so a terminal job can never change again.
type JobRepository struct {
	db dbtx
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if err := domain.ValidateJob(job); err != nil {
		return err
	}
	args := job.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO jobs (id, kind, state, args, created_at) VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.Kind, job.State, []byte(args), job.CreatedAt,
	)
	return err
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrJobNotFound
	}
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if !isUUID(id) {
		return nil, domain.ErrJobNotFound
	}
	job, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimNext starts the oldest pending job. Concurrent workers skip rows that
// are already locked, so each job is claimed once.
func (r *JobRepository) ClaimNext(ctx context.Context) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM jobs
			 WHERE state = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT 1
		 )
		 UPDATE jobs
		 SET state = $2, started_at = now()
		 FROM cte
		 WHERE jobs.id = cte.id
		 RETURNING jobs.id, jobs.kind, jobs.state, jobs.args, jobs.result, jobs.error,
		           jobs.created_at, jobs.started_at, jobs.finished_at`,
		domain.JobStatePending, domain.JobStateStarted,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// Claim starts a specific job if it is still pending.
func (r *JobRepository) Claim(ctx context.Context, id string) (*domain.Job, error) {
	if !isUUID(id) {
		return nil, domain.ErrJobNotFound
	}
	job, err := scanJob(r.db.QueryRow(ctx,
		`UPDATE jobs SET state = $3, started_at = now()
		 WHERE id = $1 AND state = $2
		 RETURNING `+jobColumns,
		id, domain.JobStatePending, domain.JobStateStarted,
	))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidJobTransition
}

func (r *JobRepository) Complete(ctx context.Context, id string, result json.RawMessage) error {
	return r.finish(ctx, id, domain.JobStateSuccess, []byte(result), nil)
}

func (r *JobRepository) Fail(ctx context.Context, id string, errMsg string) error {
	return r.finish(ctx, id, domain.JobStateFailure, nil, &errMsg)
}

func (r *JobRepository) finish(ctx context.Context, id string, state domain.JobState, result []byte, errMsg *string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE jobs SET state = $3, result = $4, error = $5, finished_at = now()
		 WHERE id = $1 AND state = $2`,
		id, domain.JobStateStarted, state, result, errMsg,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrInvalidJobTransition
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var kind, state string
	var args, result []byte
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &kind, &state, &args, &result, &errMsg,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt); err != nil {
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.State = domain.JobState(state)
	job.Args = args
	if len(result) > 0 {
		job.Result = result
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if err := domain.ValidateJob(&job); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	return &job, nil
}
