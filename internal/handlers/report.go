package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xHacka/logstat/internal/report"
	"github.com/xHacka/logstat/internal/repository"
)

type ReportHandler struct {
	Repo repository.Repository
}

// ServeHTTP returns the stored report as JSON, or rendered as text when
// ?format=markdown or ?format=adoc is given.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.Repo.GetReport(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown report "+id)
		return
	}
	if err != nil {
		slog.Error("load report", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot load report")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	f, err := report.FormatterFor(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType(f)+"; charset=utf-8")
	if err := report.Render(w, rep.Summary, f); err != nil {
		slog.Warn("render report", "id", id, "error", err)
	}
}

func contentType(f report.Formatter) string {
	if f.Extension() == ".adoc" {
		return "text/asciidoc"
	}
	return "text/markdown"
}
