package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/testcopilot/internal/api"
	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProjectGetter interface {
	Get(ctx context.Context, id string) (*domain.Project, error)
}

type Searcher interface {
	Search(ctx context.Context, projectID, query string, k int) (*domain.RetrievalResult, error)
}

type SearchHandler struct {
	projects ProjectGetter
	searcher Searcher
}

func NewSearchHandler(projects ProjectGetter, searcher Searcher) *SearchHandler {
	return &SearchHandler{projects: projects, searcher: searcher}
}

// Search handles GET /projects/{projectID}/search?q=&k=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	query := r.URL.Query().Get("q")

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.Error(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}

	if _, err := h.projects.Get(r.Context(), projectID); err != nil {
		api.HandleError(w, r, err)
		return
	}

	result, err := h.searcher.Search(r.Context(), projectID, query, k)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
