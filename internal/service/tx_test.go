package service

import "context"

type testTxRepos struct {
	documents DocumentRepository
	chunks    ChunkWriter
}

func (t *testTxRepos) Documents() DocumentRepository {
	return t.documents
}

func (t *testTxRepos) Chunks() ChunkWriter {
	return t.chunks
}

// testTxRunner runs fn without a transaction; it cannot roll anything back.
type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
