package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/pagination"
	"github.com/google/uuid"
)

const (
	DefaultDocumentPageSize = 50
	MaxDocumentPageSize     = 200
)

type UploadInput struct {
	ProjectID   string
	Filename    string
	ContentType string
	Data        []byte
}

// IngestTicket is returned when an ingest job has been submitted for a document.
type IngestTicket struct {
	DocumentID string                `json:"document_id"`
	JobID      string                `json:"job_id"`
	Status     domain.DocumentStatus `json:"status"`
}

// DocumentService owns the upload side of ingestion. Chunks are only ever
// written by the ingest job it submits.
type DocumentService struct {
	projects ProjectRepository
	docs     DocumentRepository
	blobs    BlobStore
	jobs     JobSubmitter
	now      Clock
	newID    func() string
}

func NewDocumentService(projects ProjectRepository, docs DocumentRepository, blobs BlobStore, jobs JobSubmitter) *DocumentService {
	return &DocumentService{
		projects: projects,
		docs:     docs,
		blobs:    blobs,
		jobs:     jobs,
		now:      utcNow,
		newID:    uuid.NewString,
	}
}

// Upload stores the raw bytes, records the document and submits an ingest job.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*IngestTicket, error) {
	if len(in.Data) == 0 {
		return nil, domain.ErrEmptyUpload
	}
	if _, err := s.projects.GetByID(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	doc := domain.NewDocument(s.newID(), in.ProjectID, in.Filename, in.ContentType, s.now())
	doc.BlobKey = blobKey(doc.ProjectID, doc.ID)
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	if err := s.blobs.Put(ctx, doc.BlobKey, in.Data, doc.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		s.dropBlob(ctx, doc.BlobKey)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return s.submitIngest(ctx, doc)
}

// Reingest re-runs ingestion of an existing document from its stored bytes.
// A run that is already in flight loses to this one.
func (s *DocumentService) Reingest(ctx context.Context, projectID, documentID string) (*IngestTicket, error) {
	doc, err := s.Get(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}
	return s.submitIngest(ctx, doc)
}

func (s *DocumentService) submitIngest(ctx context.Context, doc *domain.Document) (*IngestTicket, error) {
	if _, err := s.docs.TransitionStatus(ctx, doc.ID, doc.Status, domain.DocumentStatusIngesting); err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}

	job, err := s.jobs.Submit(ctx, domain.JobKindIngest, domain.IngestArgs{
		DocumentID:  doc.ID,
		BlobKey:     doc.BlobKey,
		ContentType: doc.ContentType,
		Filename:    doc.Filename,
	})
	if err != nil {
		if _, ferr := s.docs.TransitionStatus(ctx, doc.ID, domain.DocumentStatusIngesting, domain.DocumentStatusFailed); ferr != nil {
			slog.ErrorContext(ctx, "failed to mark document failed", "document_id", doc.ID, "error", ferr)
		}
		return nil, fmt.Errorf("failed to submit ingest job: %w", err)
	}

	slog.InfoContext(ctx, "ingest job submitted", "document_id", doc.ID, "job_id", job.ID)
	return &IngestTicket{DocumentID: doc.ID, JobID: job.ID, Status: domain.DocumentStatusIngesting}, nil
}

// Get returns a document only when it belongs to projectID.
func (s *DocumentService) Get(ctx context.Context, projectID, documentID string) (*domain.Document, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ProjectID != projectID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, projectID string, limit int, cursor string) (*pagination.PageResult[*domain.Document], error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultDocumentPageSize
	}
	if limit > MaxDocumentPageSize {
		limit = MaxDocumentPageSize
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	docs, err := s.docs.ListByProject(ctx, projectID, limit, decoded)
	if err != nil {
		return nil, err
	}

	return pagination.NewPage(docs, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt },
	), nil
}

// Delete removes the document and, through the foreign key, all of its chunks.
func (s *DocumentService) Delete(ctx context.Context, projectID, documentID string) error {
	doc, err := s.Get(ctx, projectID, documentID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		return err
	}
	s.dropBlob(ctx, doc.BlobKey)
	slog.InfoContext(ctx, "document deleted", "document_id", doc.ID, "project_id", projectID)
	return nil
}

func (s *DocumentService) dropBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		slog.WarnContext(ctx, "failed to delete upload", "blob_key", key, "error", err)
	}
}

func blobKey(projectID, documentID string) string {
	return fmt.Sprintf("documents/%s/%s", projectID, documentID)
}
