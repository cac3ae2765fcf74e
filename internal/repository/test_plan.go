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

type TestPlanRepository struct {
	db dbtx
}

func NewTestPlanRepository(pool *pgxpool.Pool) *TestPlanRepository {
	return &TestPlanRepository{db: pool}
}

// Create stores plan.Plan verbatim; keys the typed view does not know survive.
func (r *TestPlanRepository) Create(ctx context.Context, plan *domain.TestPlan) error {
	if !json.Valid(plan.Plan) {
		return fmt.Errorf("test plan %s: plan is not valid JSON", plan.ID)
	}
	var jobID *string
	if plan.JobID != "" {
		jobID = &plan.JobID
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO test_plans (id, project_id, job_id, plan_json, created_at) VALUES ($1, $2, $3, $4, $5)`,
		plan.ID, plan.ProjectID, jobID, []byte(plan.Plan), plan.CreatedAt,
	)
	return err
}

// LatestByProject returns the most recently created plan of a project.
func (r *TestPlanRepository) LatestByProject(ctx context.Context, projectID string) (*domain.TestPlan, error) {
	if !isUUID(projectID) {
		return nil, domain.ErrTestPlanNotFound
	}

	var plan domain.TestPlan
	var jobID pgtype.Text
	var body []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, job_id::text, plan_json, created_at
		 FROM test_plans
		 WHERE project_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		projectID,
	).Scan(&plan.ID, &plan.ProjectID, &jobID, &body, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTestPlanNotFound
		}
		return nil, err
	}
	if jobID.Valid {
		plan.JobID = jobID.String
	}
	doc, err := domain.ParseTestPlanDocument(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode test plan %s: %w", plan.ID, err)
	}
	plan.Plan = json.RawMessage(body)
	plan.Document = doc
	return &plan, nil
}
