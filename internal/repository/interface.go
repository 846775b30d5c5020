package repository

import (
	"context"
	"errors"
	"time"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/models"
)

var ErrNotFound = errors.New("not found")

type ResourceKind string

const (
	KindFile ResourceKind = "file"
	KindURL  ResourceKind = "url"
)

// Resource is a log source registered for later analysis: an uploaded file
// stored on disk or a remote URL, plus the filters to apply to it.
type Resource struct {
	ID        string        `json:"id"`
	Kind      ResourceKind  `json:"kind"`
	Location  string        `json:"location"`
	Filters   filter.Config `json:"filters"`
	CreatedAt time.Time     `json:"created_at"`
}

// Report is a persisted analysis result.
type Report struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Summary   models.Summary `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

type Repository interface {
	CreateResource(ctx context.Context, kind ResourceKind, location string) (Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	SetFilters(ctx context.Context, id string, f filter.Config) error
	DeleteResource(ctx context.Context, id string) error
	SaveReport(ctx context.Context, source string, s models.Summary) (Report, error)
	GetReport(ctx context.Context, id string) (Report, error)
	// DeleteOlderThan removes resources and reports created before t and
	// returns the resources removed, so callers can clean up their files.
	DeleteOlderThan(ctx context.Context, t time.Time) ([]Resource, error)
}
