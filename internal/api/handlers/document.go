package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/testcopilot/internal/api"
	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/pagination"
	"github.com/cloo-solutions/testcopilot/internal/service"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

type DocumentService interface {
	Upload(ctx context.Context, in service.UploadInput) (*service.IngestTicket, error)
	Reingest(ctx context.Context, projectID, documentID string) (*service.IngestTicket, error)
	List(ctx context.Context, projectID string, limit int, cursor string) (*pagination.PageResult[*domain.Document], error)
	Delete(ctx context.Context, projectID, documentID string) error
}

type DocumentHandler struct {
	svc            DocumentService
	maxUploadBytes int64
}

func NewDocumentHandler(svc DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form with a single "file" part and starts ingestion.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	var reader io.Reader = file
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(file, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	ticket, err := h.svc.Upload(r.Context(), service.UploadInput{
		ProjectID:   chi.URLParam(r, "projectID"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, ticket)
}

func (h *DocumentHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.svc.Reingest(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, ticket)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	page, err := h.svc.List(r.Context(), chi.URLParam(r, "projectID"), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, page)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "documentID")); err != nil {
		api.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
