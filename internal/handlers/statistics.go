package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/ingest"
	"github.com/xHacka/logstat/internal/repository"
	"github.com/xHacka/logstat/internal/source"
)

// StatisticsHandler analyzes a registered resource once. On success the
// summary is stored as a report and the resource is consumed.
type StatisticsHandler struct {
	Repo    repository.Repository
	Options ingest.Options
}

func (h *StatisticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	res, err := h.Repo.GetResource(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown resource "+id)
		return
	}
	if err != nil {
		slog.Error("load resource", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot load resource")
		return
	}

	f, err := filter.Compile(res.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := ingest.Analyze(ctx, []string{res.Location}, f, h.Options)
	if err != nil {
		status := analysisStatus(err)
		slog.Warn("analysis failed", "id", id, "status", status, "error", err)
		writeError(w, status, err.Error())
		return
	}
	name := res.Location
	if res.Kind == repository.KindFile {
		name = displayName(res.Location)
		summary.Sources = []string{name}
	}

	rep, err := h.Repo.SaveReport(ctx, name, summary)
	if err != nil {
		slog.Error("save report", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot save report")
		return
	}
	h.consume(r, res)

	w.Header().Set("Location", "/reports/"+rep.ID)
	writeJSON(w, http.StatusOK, summary)
}

// consume deletes the resource and, for uploads, the stored file.
func (h *StatisticsHandler) consume(r *http.Request, res repository.Resource) {
	if err := h.Repo.DeleteResource(r.Context(), res.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Warn("delete resource", "id", res.ID, "error", err)
	}
	removeUpload(res)
}

func removeUpload(res repository.Resource) {
	if res.Kind != repository.KindFile {
		return
	}
	if err := os.Remove(res.Location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("remove upload", "path", res.Location, "error", err)
	}
}

func analysisStatus(err error) int {
	var srcErr *source.Error
	switch {
	case errors.Is(err, filter.ErrInvalidFilter):
		return http.StatusBadRequest
	case source.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &srcErr):
		return http.StatusBadGateway
	case errors.Is(err, ingest.ErrNoSources):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
