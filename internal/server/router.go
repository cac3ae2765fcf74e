package server

import (
	"net/http"

	"github.com/cloo-solutions/testcopilot/internal/api"
	"github.com/cloo-solutions/testcopilot/internal/api/handlers"
	"github.com/cloo-solutions/testcopilot/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

// defaultMaxBodyBytes caps JSON bodies; multipart uploads are limited by
// the document handler instead.
const defaultMaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	ProjectHandler  *handlers.ProjectHandler
	DocumentHandler *handlers.DocumentHandler
	SearchHandler   *handlers.SearchHandler
	PlanHandler     *handlers.PlanHandler
	JobHandler      *handlers.JobHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(defaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", cfg.ProjectHandler.Create)
		r.Get("/", cfg.ProjectHandler.List)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", cfg.ProjectHandler.Get)

			r.Post("/documents", cfg.DocumentHandler.Upload)
			r.Get("/documents", cfg.DocumentHandler.List)
			r.Delete("/documents/{documentID}", cfg.DocumentHandler.Delete)
			r.Post("/documents/{documentID}/reingest", cfg.DocumentHandler.Reingest)

			r.Get("/search", cfg.SearchHandler.Search)

			r.Post("/generate/test-plan", cfg.PlanHandler.Generate)
			r.Get("/test-plans/latest", cfg.PlanHandler.Latest)
		})
	})

	r.Get("/jobs/{jobID}", cfg.JobHandler.Get)

	return r
}
