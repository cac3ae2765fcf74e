package service

import "context"

// TxRepositories exposes repositories bound to a single transaction.
type TxRepositories interface {
	Documents() DocumentRepository
	Chunks() ChunkWriter
}

// TxRunner executes fn inside a transaction, rolling back when it returns an error.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
