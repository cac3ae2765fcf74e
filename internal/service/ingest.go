package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/telemetry"
	"github.com/google/uuid"
)

// TextEmbedder embeds an ordered list of texts.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestPipeline turns an uploaded document into embedded chunks.
type IngestPipeline struct {
	docs     DocumentRepository
	blobs    BlobStore
	embedder TextEmbedder
	tx       TxRunner
	chunkCfg ChunkConfig
	now      Clock
	newID    func() string
}

func NewIngestPipeline(docs DocumentRepository, blobs BlobStore, embedder TextEmbedder, tx TxRunner, chunkCfg ChunkConfig) *IngestPipeline {
	return &IngestPipeline{
		docs:     docs,
		blobs:    blobs,
		embedder: embedder,
		tx:       tx,
		chunkCfg: chunkCfg,
		now:      utcNow,
		newID:    uuid.NewString,
	}
}

// Run ingests one document. A failed run marks the document failed only while
// its generation is still the one this run started.
func (p *IngestPipeline) Run(ctx context.Context, jobID string, args domain.IngestArgs) (*domain.IngestResult, error) {
	if args.DocumentID == "" {
		return nil, domain.ErrInvalidDocumentID
	}

	doc, err := p.docs.GetByID(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	generation, err := p.docs.BeginGeneration(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingestion: %w", err)
	}

	count, err := p.ingest(ctx, jobID, doc, generation, args)
	if err != nil {
		if errors.Is(err, domain.ErrStaleGeneration) {
			slog.WarnContext(ctx, "ingestion superseded by a newer run",
				"document_id", doc.ID, "generation", generation)
			return nil, err
		}
		if _, ferr := p.docs.SetStatusIfGeneration(ctx, doc.ID, generation, domain.DocumentStatusFailed); ferr != nil {
			slog.ErrorContext(ctx, "failed to mark document failed", "document_id", doc.ID, "error", ferr)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "document ingested",
		"document_id", doc.ID, "project_id", doc.ProjectID, "chunks", count, "generation", generation)

	return &domain.IngestResult{
		DocumentID: doc.ID,
		Chunks:     count,
		Status:     domain.DocumentStatusReady,
	}, nil
}

func (p *IngestPipeline) ingest(ctx context.Context, jobID string, doc *domain.Document, generation int64, args domain.IngestArgs) (int, error) {
	attrs := telemetry.SpanAttributes{ProjectID: doc.ProjectID, DocumentID: doc.ID, JobID: jobID}

	blobKey := firstNonEmpty(args.BlobKey, doc.BlobKey)
	contentType := firstNonEmpty(args.ContentType, doc.ContentType)
	filename := firstNonEmpty(args.Filename, doc.Filename)

	spanCtx, span := telemetry.StartSpan(ctx, "ingest.extract", attrs)
	raw, err := p.blobs.Get(spanCtx, blobKey)
	if err != nil {
		span.SetError(err)
		span.End()
		return 0, fmt.Errorf("failed to load upload: %w", err)
	}
	text, err := ExtractText(raw, contentType, filename)
	span.SetError(err)
	span.End()
	if err != nil {
		return 0, err
	}

	_, span = telemetry.StartSpan(ctx, "ingest.chunk", attrs)
	spans := ChunkText(text, p.chunkCfg)
	span.End()

	spanCtx, span = telemetry.StartSpan(ctx, "ingest.embed", attrs)
	vectors, err := p.embedder.Embed(spanCtx, spans)
	span.SetError(err)
	span.End()
	if err != nil {
		return 0, err
	}

	now := p.now()
	chunks := make([]domain.Chunk, len(spans))
	for i, t := range spans {
		chunks[i] = domain.Chunk{
			ID:         p.newID(),
			ProjectID:  doc.ProjectID,
			DocumentID: doc.ID,
			Idx:        i,
			Text:       t,
			Embedding:  vectors[i],
			Meta:       map[string]string{"filename": filename, "content_type": contentType},
			CreatedAt:  now,
		}
	}

	spanCtx, span = telemetry.StartSpan(ctx, "ingest.store", attrs)
	defer span.End()
	err = p.tx.WithTx(spanCtx, func(repos TxRepositories) error {
		if _, err := repos.Chunks().ReplaceDocumentChunks(spanCtx, domain.ChunkReplace{
			ProjectID:  doc.ProjectID,
			DocumentID: doc.ID,
			Generation: generation,
			Chunks:     chunks,
		}); err != nil {
			return err
		}
		ok, err := repos.Documents().SetStatusIfGeneration(spanCtx, doc.ID, generation, domain.DocumentStatusReady)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrStaleGeneration
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	return len(chunks), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
