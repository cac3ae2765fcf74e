package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/pagination"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByProject(ctx context.Context, projectID string, limit int, cursor *pagination.Cursor) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
	// TransitionStatus moves a document from one status to another and reports
	// whether a row changed.
	TransitionStatus(ctx context.Context, id string, from, to domain.DocumentStatus) (bool, error)
	// BeginGeneration increments the document generation, marks it ingesting
	// and returns the new generation.
	BeginGeneration(ctx context.Context, id string) (int64, error)
	// SetStatusIfGeneration updates the status only while generation is still current.
	SetStatusIfGeneration(ctx context.Context, id string, generation int64, status domain.DocumentStatus) (bool, error)
}

// ChunkWriter atomically replaces the chunk set of one document.
type ChunkWriter interface {
	ReplaceDocumentChunks(ctx context.Context, replace domain.ChunkReplace) ([]domain.Chunk, error)
}

// VectorStore persists chunks with embeddings and answers nearest-neighbour queries
// scoped to a project.
type VectorStore interface {
	ChunkWriter
	Query(ctx context.Context, projectID string, vector []float32, k int) ([]domain.ScoredChunk, error)
}

// BlobStore keeps the raw uploaded bytes, addressed by key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type TestPlanRepository interface {
	Create(ctx context.Context, plan *domain.TestPlan) error
	LatestByProject(ctx context.Context, projectID string) (*domain.TestPlan, error)
}

// JobSubmitter records a job and hands it to the worker queue.
type JobSubmitter interface {
	Submit(ctx context.Context, kind domain.JobKind, args any) (*domain.Job, error)
}

// Generator produces text from a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Clock is swapped in tests.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
