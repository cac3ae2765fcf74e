//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingJob(kind domain.JobKind) *domain.Job {
	return domain.NewJob(uuid.NewString(), kind, json.RawMessage(`{"project_id":"p"}`), time.Now().UTC().Truncate(time.Microsecond))
}

func TestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewJobRepository(pool)

	job := newPendingJob(domain.JobKindPlanGenerate)
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatePending, got.State)
	assert.JSONEq(t, `{"project_id":"p"}`, string(got.Args))
	assert.Nil(t, got.StartedAt)

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, domain.JobStateStarted, claimed.State)
	assert.NotNil(t, claimed.StartedAt)

	none, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Complete(ctx, job.ID, json.RawMessage(`{"test_plan_id":"x"}`)))

	done, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSuccess, done.State)
	assert.JSONEq(t, `{"test_plan_id":"x"}`, string(done.Result))
	assert.NotNil(t, done.FinishedAt)

	assert.ErrorIs(t, repo.Fail(ctx, job.ID, "late"), domain.ErrInvalidJobTransition)
}

func TestJobRepository_Claim(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewJobRepository(pool)

	job := newPendingJob(domain.JobKindIngest)
	require.NoError(t, repo.Create(ctx, job))

	claimed, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateStarted, claimed.State)

	_, err = repo.Claim(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidJobTransition)

	_, err = repo.Claim(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	require.NoError(t, repo.Fail(ctx, job.ID, "boom"))
	failed, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailure, failed.State)
	assert.Equal(t, "boom", failed.Error)
}

func TestJobRepository_ClaimNext_ConcurrentWorkersClaimOnce(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewJobRepository(pool)

	const total = 10
	for i := 0; i < total; i++ {
		require.NoError(t, repo.Create(ctx, newPendingJob(domain.JobKindIngest)))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := repo.ClaimNext(ctx)
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestJobRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewJobRepository(pool)

	job := newPendingJob(domain.JobKindIngest)
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, repo.Delete(ctx, job.ID))

	_, err := repo.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRepository_CreateRejectsInvalidJob(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewJobRepository(pool)

	job := newPendingJob("zip")
	assert.ErrorIs(t, repo.Create(ctx, job), domain.ErrInvalidJobKind)

	job = newPendingJob(domain.JobKindIngest)
	job.ID = ""
	assert.ErrorIs(t, repo.Create(ctx, job), domain.ErrMissingRequiredField)
}
