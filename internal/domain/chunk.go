package domain

import "time"

// Chunk is a bounded, position-ordered span of a document with its embedding.
// Idx is dense and contiguous from 0 within one document.
type Chunk struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	DocumentID string            `json:"document_id"`
	Idx        int               `json:"idx"`
	Text       string            `json:"text"`
	Embedding  []float32         `json:"-"`
	Meta       map[string]string `json:"meta,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ChunkReplace is a full replacement of one document's chunk set.
type ChunkReplace struct {
	ProjectID  string
	DocumentID string
	Generation int64
	Chunks     []Chunk
}

// ScoredChunk is a chunk paired with its distance to a query vector.
type ScoredChunk struct {
	Chunk    Chunk
	Distance float64
}
