package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, project_id, filename, content_type, status, blob_key, generation, created_at, updated_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.ProjectID, doc.Filename, doc.ContentType, doc.Status, doc.BlobKey, doc.Generation,
		doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if !isUUID(id) {
		return nil, domain.ErrDocumentNotFound
	}
	doc, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListByProject pages newest first. The cursor is the last document of the previous page.
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string, limit int, cursor *pagination.Cursor) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE project_id = $1`
	args := []interface{}{projectID}
	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes the document; its chunks go with it through ON DELETE CASCADE.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrDocumentNotFound
	}
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) TransitionStatus(ctx context.Context, id string, from, to domain.DocumentStatus) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *DocumentRepository) BeginGeneration(ctx context.Context, id string) (int64, error) {
	var generation int64
	err := r.db.QueryRow(ctx,
		`UPDATE documents
		 SET generation = generation + 1, status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING generation`,
		id, domain.DocumentStatusIngesting,
	).Scan(&generation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrDocumentNotFound
		}
		return 0, err
	}
	return generation, nil
}

func (r *DocumentRepository) SetStatusIfGeneration(ctx context.Context, id string, generation int64, status domain.DocumentStatus) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $3, updated_at = now() WHERE id = $1 AND generation = $2`,
		id, generation, status,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var status string
	if err := row.Scan(&d.ID, &d.ProjectID, &d.Filename, &d.ContentType, &status, &d.BlobKey,
		&d.Generation, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Status = domain.DocumentStatus(status)
	return &d, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
