package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/testcopilot/internal/api"
	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/go-chi/chi/v5"
)

type PlanService interface {
	Request(ctx context.Context, projectID string) (*domain.Job, error)
	Latest(ctx context.Context, projectID string) (*domain.TestPlan, error)
}

type PlanHandler struct {
	svc PlanService
}

func NewPlanHandler(svc PlanService) *PlanHandler {
	return &PlanHandler{svc: svc}
}

type GeneratePlanResponse struct {
	JobID string `json:"job_id"`
}

func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Request(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, GeneratePlanResponse{JobID: job.ID})
}

func (h *PlanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	plan, err := h.svc.Latest(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, plan)
}
