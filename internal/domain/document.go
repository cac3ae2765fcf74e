package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the ingestion lifecycle of a document
type DocumentStatus string

const (
	DocumentStatusUploaded  DocumentStatus = "uploaded"
	DocumentStatusIngesting DocumentStatus = "ingesting"
	DocumentStatusReady     DocumentStatus = "ready"
	DocumentStatusFailed    DocumentStatus = "failed"
)

const DefaultContentType = "application/octet-stream"

// Document is an uploaded source file owned by a project.
// Generation is bumped every time an ingest job starts; a chunk replace
// only commits if the generation it started with is still current.
type Document struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Status      DocumentStatus `json:"status"`
	BlobKey     string         `json:"-"`
	Generation  int64          `json:"generation"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDocument creates a Document in the uploaded state
func NewDocument(id, projectID, filename, contentType string, createdAt time.Time) *Document {
	if filename == "" {
		filename = "upload"
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Document{
		ID:          id,
		ProjectID:   projectID,
		Filename:    filename,
		ContentType: contentType,
		Status:      DocumentStatusUploaded,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.ProjectID == "" {
		return fmt.Errorf("document ProjectID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if len(d.Filename) > 255 {
		return fmt.Errorf("document Filename must be at most 255 characters")
	}

	if !IsValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.Generation < 0 {
		return fmt.Errorf("document Generation cannot be negative")
	}

	return nil
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusIngesting,
		DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
