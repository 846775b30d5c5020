package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/repository"
)

const (
	defaultMaxUploadBytes = 100 << 20
	maxURLBodyBytes       = 8 << 10
	maxFiltersBodyBytes   = 64 << 10
)

// UploadHandler registers log sources and their filters.
type UploadHandler struct {
	Repo repository.Repository
	// Dir receives uploaded files.
	Dir            string
	MaxUploadBytes int64
}

// File stores the multipart field "file" under Dir and registers it.
func (h *UploadHandler) File(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded or invalid form: "+err.Error())
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		slog.Error("create upload dir", "dir", h.Dir, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot store upload")
		return
	}
	path := filepath.Join(h.Dir, uuid.NewString()+"_"+storedName(header.Filename))
	if err := saveUpload(path, file); err != nil {
		slog.Error("store upload", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot store upload")
		return
	}

	res, err := h.Repo.CreateResource(r.Context(), repository.KindFile, path)
	if err != nil {
		os.Remove(path)
		slog.Error("register upload", "error", err)
		writeError(w, http.StatusInternalServerError, "cannot register upload")
		return
	}
	slog.Info("file uploaded", "id", res.ID, "name", header.Filename)
	writeJSON(w, http.StatusCreated, idResponse{ID: res.ID})
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// storedName keeps the client file name readable in reports while making
// sure it can never be taken for a glob or a path.
func storedName(name string) string {
	name = filepath.Base(filepath.Clean("/" + filepath.ToSlash(name)))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '*', '?', '[', ']', '{', '}', '/', '\\':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "_" {
		return "upload.log"
	}
	return name
}

// displayName strips the storage key from an uploaded file name.
func displayName(path string) string {
	base := filepath.Base(path)
	if key, name, ok := strings.Cut(base, "_"); ok && name != "" {
		if _, err := uuid.Parse(key); err == nil {
			return name
		}
	}
	return base
}

// URL registers a remote http(s) source. The body is either the bare URL or
// JSON {"url": "..."}.
func (h *UploadHandler) URL(w http.ResponseWriter, r *http.Request) {
	raw, err := readURLBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "expected an absolute http or https URL")
		return
	}

	res, err := h.Repo.CreateResource(r.Context(), repository.KindURL, u.String())
	if err != nil {
		slog.Error("register url", "error", err)
		writeError(w, http.StatusInternalServerError, "cannot register url")
		return
	}
	slog.Info("url registered", "id", res.ID, "url", res.Location)
	writeJSON(w, http.StatusCreated, idResponse{ID: res.ID})
}

func readURLBody(r *http.Request) (string, error) {
	body := io.LimitReader(r.Body, maxURLBodyBytes)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return "", errors.New("invalid JSON body: " + err.Error())
		}
		return strings.TrimSpace(req.URL), nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Filters validates and stores the filter configuration of a resource.
func (h *UploadHandler) Filters(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var cfg filter.Config
	dec := json.NewDecoder(io.LimitReader(r.Body, maxFiltersBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if _, err := filter.Compile(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.Repo.SetFilters(r.Context(), id, cfg)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown resource "+id)
	case err != nil:
		slog.Error("store filters", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot store filters")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
