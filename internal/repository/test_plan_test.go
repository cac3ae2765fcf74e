//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestPlanRepository_LatestByProject(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	project := createProject(ctx, t, NewProjectRepository(pool), "plans")
	repo := NewTestPlanRepository(pool)

	_, err := repo.LatestByProject(ctx, project.ID)
	assert.ErrorIs(t, err, domain.ErrTestPlanNotFound)

	now := time.Now().UTC().Truncate(time.Microsecond)
	older := &domain.TestPlan{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		CreatedAt: now.Add(-time.Minute),
		Plan:      json.RawMessage(`{"project_overview":"old","tests":[]}`),
	}
	newer := &domain.TestPlan{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		CreatedAt: now,
		Plan:      json.RawMessage(`{"project_overview":"new","tests":[{"id":"T1","priority":"P0","title":"Login","sources":["c1"]}]}`),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	latest, err := repo.LatestByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	require.NotNil(t, latest.Document)
	assert.Equal(t, "new", latest.Document.ProjectOverview)
	require.Len(t, latest.Document.Tests, 1)
	assert.Equal(t, []string{"c1"}, latest.Document.Tests[0].Sources)
	assert.Empty(t, latest.JobID)
}

func TestTestPlanRepository_KeepsModelObjectVerbatim(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	project := createProject(ctx, t, NewProjectRepository(pool), "verbatim")
	repo := NewTestPlanRepository(pool)

	body := `{"project_overview":"x","risks":["token replay"],"tests":[{"id":"T1","title":"a","notes":"keep me"}]}`
	require.NoError(t, repo.Create(ctx, &domain.TestPlan{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		CreatedAt: time.Now().UTC(),
		Plan:      json.RawMessage(body),
	}))

	latest, err := repo.LatestByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(latest.Plan))
}

func TestTestPlanRepository_CreateRejectsInvalidJSON(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	project := createProject(ctx, t, NewProjectRepository(pool), "invalid")

	err := NewTestPlanRepository(pool).Create(ctx, &domain.TestPlan{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		CreatedAt: time.Now().UTC(),
		Plan:      json.RawMessage(`{"tests":`),
	})
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestBlobRepository_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewBlobRepository(pool)

	require.NoError(t, repo.Put(ctx, "documents/p/d", []byte("v1"), "text/plain"))
	require.NoError(t, repo.Put(ctx, "documents/p/d", []byte("v2"), "text/plain"))

	data, err := repo.Get(ctx, "documents/p/d")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, repo.Delete(ctx, "documents/p/d"))
	_, err = repo.Get(ctx, "documents/p/d")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "documents/p/d"), domain.ErrBlobNotFound)
}

func TestBlobRepository_FailuresAreStorageErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobRepository(setupPool(ctx, t))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	err := repo.Put(canceled, "documents/p/d", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)

	_, err = repo.Get(canceled, "documents/p/d")
	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)
	assert.NotErrorIs(t, err, domain.ErrBlobNotFound)
}
