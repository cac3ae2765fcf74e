package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BlobRepository keeps raw uploads in Postgres. It is the blob store used
// when no S3 bucket is configured.
type BlobRepository struct {
	db dbtx
}

func NewBlobRepository(pool *pgxpool.Pool) *BlobRepository {
	return &BlobRepository{db: pool}
}

func (r *BlobRepository) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO document_blobs (key, content_type, data) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data`,
		key, contentType, data,
	)
	if err != nil {
		return storageError("put", key, err)
	}
	return nil
}

func (r *BlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM document_blobs WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, storageError("get", key, err)
	}
	return data, nil
}

func (r *BlobRepository) Delete(ctx context.Context, key string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM document_blobs WHERE key = $1`, key)
	if err != nil {
		return storageError("delete", key, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrBlobNotFound
	}
	return nil
}

func storageError(op, key string, err error) error {
	return domain.ErrStorageOperationFail.Wrap(fmt.Errorf("blob %s %s: %w", op, key, err))
}
