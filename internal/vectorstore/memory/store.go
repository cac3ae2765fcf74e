// Package memory is an in-process vector store. Each Store is independent.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/vectorstore"
)

type document struct {
	projectID  string
	generation int64
	chunks     []domain.Chunk
}

// Store keeps chunk sets per document. A replace carrying an older generation
// than the one already stored is refused.
type Store struct {
	mu     sync.RWMutex
	metric vectorstore.Metric
	docs   map[string]*document
}

func New(metric vectorstore.Metric) *Store {
	return &Store{metric: metric, docs: make(map[string]*document)}
}

func (s *Store) ReplaceDocumentChunks(ctx context.Context, r domain.ChunkReplace) ([]domain.Chunk, error) {
	if err := vectorstore.ValidateChunkSet(r); err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(r.Chunks))
	for i, c := range r.Chunks {
		c.Embedding = slices.Clone(c.Embedding)
		chunks[i] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[r.DocumentID]; ok && r.Generation < existing.generation {
		return nil, domain.ErrStaleGeneration
	}
	s.docs[r.DocumentID] = &document{projectID: r.ProjectID, generation: r.Generation, chunks: chunks}

	return slices.Clone(chunks), nil
}

func (s *Store) Query(ctx context.Context, projectID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	s.mu.RLock()
	scored := make([]domain.ScoredChunk, 0)
	for _, doc := range s.docs {
		if doc.projectID != projectID {
			continue
		}
		for _, c := range doc.chunks {
			scored = append(scored, domain.ScoredChunk{Chunk: c, Distance: s.metric.Distance(vector, c.Embedding)})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(scored, func(a, b domain.ScoredChunk) int {
		return cmp.Or(
			cmp.Compare(a.Distance, b.Distance),
			cmp.Compare(a.Chunk.Idx, b.Chunk.Idx),
			cmp.Compare(a.Chunk.DocumentID, b.Chunk.DocumentID),
		)
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteDocument drops every chunk of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) {
	s.mu.Lock()
	delete(s.docs, documentID)
	s.mu.Unlock()
}

// Count returns the number of chunks stored for a document.
func (s *Store) Count(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.docs[documentID]; ok {
		return len(doc.chunks)
	}
	return 0
}
