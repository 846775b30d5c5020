package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/models"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestResourceLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.CreateResource(ctx, KindURL, "https://example.com/access.log")
	if err != nil {
		t.Fatal(err)
	}
	if res.ID == "" {
		t.Fatal("expected generated id")
	}

	from := time.Date(2015, 5, 17, 8, 5, 0, 0, time.UTC)
	cfg := filter.Config{From: &from, Fields: map[string]string{"status": "4.*", "method": "GET"}}
	if err := repo.SetFilters(ctx, res.ID, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetResource(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindURL || got.Location != res.Location {
		t.Errorf("unexpected resource %+v", got)
	}
	if got.Filters.From == nil || !got.Filters.From.Equal(from) {
		t.Errorf("from bound not persisted: %v", got.Filters.From)
	}
	if got.Filters.Fields["status"] != "4.*" || got.Filters.Fields["method"] != "GET" {
		t.Errorf("field filters not persisted: %v", got.Filters.Fields)
	}

	if err := repo.DeleteResource(ctx, res.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetResource(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUnknownResource(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SetFilters(ctx, "missing", filter.Config{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetFilters: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteResource(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteResource: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetReport(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport: expected ErrNotFound, got %v", err)
	}
}

func TestReportRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	summary := models.Summary{
		Sources:        []string{"access.log"},
		RequestMethods: map[string]int{"GET": 3},
		Statuses:       map[int]int{304: 2, 404: 1},
		RequestsAmount: 3,
		IgnoredRows:    1,
		P95BytesSent:   400,
	}
	rep, err := repo.SaveReport(ctx, "access.log", summary)
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetReport(ctx, rep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "access.log" || got.Summary.RequestsAmount != 3 || got.Summary.IgnoredRows != 1 {
		t.Errorf("unexpected report %+v", got)
	}
	if got.Summary.Statuses[304] != 2 {
		t.Errorf("status counts not persisted: %v", got.Summary.Statuses)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.CreateResource(ctx, KindFile, "/tmp/uploads/a.log")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveReport(ctx, "a.log", models.Summary{}); err != nil {
		t.Fatal(err)
	}

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 0 {
		t.Fatalf("nothing should be older than an hour ago, removed %d", len(removed))
	}

	removed, err = repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0].ID != res.ID || removed[0].Location != res.Location {
		t.Fatalf("unexpected removed resources %+v", removed)
	}
	if _, err := repo.GetResource(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("resource should be gone, got %v", err)
	}
}

func TestFiltersCompileAfterReload(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.CreateResource(ctx, KindFile, "a.log")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SetFilters(ctx, res.ID, filter.Config{Field: "method", Value: "GET|HEAD"}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetResource(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	f, err := filter.Compile(got.Filters)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Fields) != 1 || f.Fields[0].Regex.String() != "GET|HEAD" {
		t.Errorf("unexpected compiled filters %+v", f.Fields)
	}
}
