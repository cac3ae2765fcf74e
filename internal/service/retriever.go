package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/telemetry"
)

// DefaultTopK is used when a caller asks for zero or fewer results.
const DefaultTopK = 8

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Retriever answers natural-language queries against a project's chunks.
type Retriever struct {
	embedder QueryEmbedder
	store    VectorStore
	topK     int
}

func NewRetriever(embedder QueryEmbedder, store VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Search embeds query and returns the k closest chunks of the project, nearest first.
func (r *Retriever) Search(ctx context.Context, projectID, query string, k int) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = r.topK
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Search", telemetry.SpanAttributes{
		ProjectID: projectID,
		Operation: "search",
	})
	defer span.End()

	vec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	scored, err := r.store.Query(ctx, projectID, vec, k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	results := make([]domain.RetrievedChunk, 0, len(scored))
	for _, sc := range scored {
		results = append(results, domain.RetrievedChunk{
			ChunkID:    sc.Chunk.ID,
			DocumentID: sc.Chunk.DocumentID,
			Idx:        sc.Chunk.Idx,
			Text:       domain.TruncateText(sc.Chunk.Text, domain.MaxRetrievedTextLen),
			Distance:   sc.Distance,
		})
	}

	return &domain.RetrievalResult{Query: query, Results: results}, nil
}
