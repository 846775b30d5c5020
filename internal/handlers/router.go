package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xHacka/logstat/internal/csrf"
	"github.com/xHacka/logstat/internal/ingest"
	"github.com/xHacka/logstat/internal/repository"
)

type RouterConfig struct {
	Repo           repository.Repository
	UploadDir      string
	MaxUploadBytes int64
	Analysis       ingest.Options
	// CSRF guards state-changing routes when non-nil.
	CSRF *csrf.Guard
}

func NewRouter(c RouterConfig) http.Handler {
	uh := &UploadHandler{Repo: c.Repo, Dir: c.UploadDir, MaxUploadBytes: c.MaxUploadBytes}
	sh := &StatisticsHandler{Repo: c.Repo, Options: c.Analysis}
	rh := &ReportHandler{Repo: c.Repo}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if c.CSRF != nil {
		r.Use(c.CSRF.Protect)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/upload", func(r chi.Router) {
		r.Post("/file", uh.File)
		r.Post("/url", uh.URL)
		r.Post("/filters/{id}", uh.Filters)
	})
	r.Get("/statistics/{id}", sh.ServeHTTP)
	r.Get("/reports/{id}", rh.ServeHTTP)
	return r
}
