package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const projectColumns = `id, name, created_at`

// ProjectRepository stores projects. Deleting a project cascades to its
// documents, chunks, plans and blob rows through foreign keys.
type ProjectRepository struct {
	db dbtx
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3)`,
		project.ID, project.Name, project.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrProjectAlreadyExists
	}
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if !isUUID(id) {
		return nil, domain.ErrProjectNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProject)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	return p, err
}

// List returns projects newest first.
func (r *ProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanProject)
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrProjectNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	switch {
	case err != nil:
		return err
	case tag.RowsAffected() == 0:
		return domain.ErrProjectNotFound
	}
	return nil
}

func scanProject(row pgx.CollectableRow) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
