package repository

import (
	"context"

	"github.com/cloo-solutions/testcopilot/internal/service"
	"github.com/cloo-solutions/testcopilot/internal/vectorstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner hands out document and chunk repositories bound to one
// read-committed transaction. The generation check in ReplaceDocumentChunks
// takes a row lock, so a stronger isolation level is not needed.
type TxRunner struct {
	pool   *pgxpool.Pool
	metric vectorstore.Metric
	opts   pgx.TxOptions
}

func NewTxRunner(pool *pgxpool.Pool, metric vectorstore.Metric) *TxRunner {
	return &TxRunner{
		pool:   pool,
		metric: metric,
		opts:   pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// WithTx commits when fn returns nil and rolls back otherwise, including on panic.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(boundRepos{tx: tx, metric: r.metric})
	})
}

type boundRepos struct {
	tx     pgx.Tx
	metric vectorstore.Metric
}

func (b boundRepos) Documents() service.DocumentRepository {
	return NewDocumentRepositoryWithTx(b.tx)
}

func (b boundRepos) Chunks() service.ChunkWriter {
	return NewChunkRepositoryWithTx(b.tx, b.metric)
}
