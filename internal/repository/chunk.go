package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/vectorstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository is the pgvector-backed vector store.
type ChunkRepository struct {
	db     dbtx
	metric vectorstore.Metric
}

func NewChunkRepository(pool *pgxpool.Pool, metric vectorstore.Metric) *ChunkRepository {
	return &ChunkRepository{db: pool, metric: metric}
}

func NewChunkRepositoryWithTx(tx pgx.Tx, metric vectorstore.Metric) *ChunkRepository {
	return &ChunkRepository{db: tx, metric: metric}
}

// ReplaceDocumentChunks swaps the whole chunk set of a document in one
// transaction (a savepoint when already inside one). The document row is
// locked first and the replace is refused if its generation has moved on.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, replace domain.ChunkReplace) ([]domain.Chunk, error) {
	if err := vectorstore.ValidateChunkSet(replace); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current int64
	err = tx.QueryRow(ctx,
		`SELECT generation FROM documents WHERE id = $1 AND project_id = $2 FOR UPDATE`,
		replace.DocumentID, replace.ProjectID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if current != replace.Generation {
		return nil, domain.ErrStaleGeneration
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, replace.DocumentID); err != nil {
		return nil, err
	}

	stored := make([]domain.Chunk, len(replace.Chunks))
	if len(replace.Chunks) > 0 {
		batch := &pgx.Batch{}
		for i, c := range replace.Chunks {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = time.Now().UTC()
			}
			meta, err := json.Marshal(nonNilMeta(c.Meta))
			if err != nil {
				return nil, fmt.Errorf("failed to encode chunk metadata: %w", err)
			}
			batch.Queue(
				`INSERT INTO chunks (id, project_id, document_id, idx, text, embedding, metadata, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				c.ID, c.ProjectID, c.DocumentID, c.Idx, c.Text, pgvector.NewVector(c.Embedding), meta, c.CreatedAt,
			)
			stored[i] = c
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("failed to insert chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

// Query returns the k nearest chunks of a project. Ties are broken by idx,
// then document id, so results are stable across calls.
func (r *ChunkRepository) Query(ctx context.Context, projectID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || !isUUID(projectID) {
		return []domain.ScoredChunk{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, project_id, document_id, idx, text, metadata, created_at, (embedding %s $1)::float8 AS distance
		FROM chunks
		WHERE project_id = $2
		ORDER BY distance ASC, idx ASC, document_id ASC
		LIMIT $3`, r.metric.Operator())

	rows, err := r.db.Query(ctx, query, pgvector.NewVector(vector), projectID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var sc domain.ScoredChunk
		var meta []byte
		if err := rows.Scan(&sc.Chunk.ID, &sc.Chunk.ProjectID, &sc.Chunk.DocumentID, &sc.Chunk.Idx,
			&sc.Chunk.Text, &meta, &sc.Chunk.CreatedAt, &sc.Distance); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &sc.Chunk.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
			}
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// CountByDocument returns how many chunks a document currently has.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

func nonNilMeta(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
