package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/testcopilot/internal/api"
	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/go-chi/chi/v5"
)

type JobStatusReader interface {
	Status(ctx context.Context, id string) (*domain.JobSnapshot, error)
}

type JobHandler struct {
	jobs JobStatusReader
}

func NewJobHandler(jobs JobStatusReader) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.jobs.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, snap)
}
