package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	location TEXT NOT NULL,
	filters TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	summary TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resources_created_at ON resources(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) CreateResource(ctx context.Context, kind ResourceKind, location string) (Resource, error) {
	res := Resource{
		ID:        uuid.NewString(),
		Kind:      kind,
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (id, kind, location, filters, created_at) VALUES (?, ?, ?, '{}', ?)`,
		res.ID, string(res.Kind), res.Location, res.CreatedAt.UnixNano())
	if err != nil {
		return Resource{}, fmt.Errorf("insert resource: %w", err)
	}
	return res, nil
}

func (r *SQLiteRepository) GetResource(ctx context.Context, id string) (Resource, error) {
	var (
		res     Resource
		kind    string
		filters string
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, location, filters, created_at FROM resources WHERE id = ?`, id).
		Scan(&res.ID, &kind, &res.Location, &filters, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	if err != nil {
		return Resource{}, err
	}
	if err := json.Unmarshal([]byte(filters), &res.Filters); err != nil {
		return Resource{}, fmt.Errorf("decode filters of %s: %w", id, err)
	}
	res.Kind = ResourceKind(kind)
	res.CreatedAt = time.Unix(0, created).UTC()
	return res, nil
}

func (r *SQLiteRepository) SetFilters(ctx context.Context, id string, f filter.Config) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `UPDATE resources SET filters = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func (r *SQLiteRepository) DeleteResource(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func (r *SQLiteRepository) SaveReport(ctx context.Context, source string, s models.Summary) (Report, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		ID:        uuid.NewString(),
		Source:    source,
		Summary:   s,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reports (id, source, summary, created_at) VALUES (?, ?, ?, ?)`,
		rep.ID, rep.Source, string(data), rep.CreatedAt.UnixNano())
	if err != nil {
		return Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, id string) (Report, error) {
	var (
		rep     Report
		summary string
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, summary, created_at FROM reports WHERE id = ?`, id).
		Scan(&rep.ID, &rep.Source, &summary, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if err := json.Unmarshal([]byte(summary), &rep.Summary); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	rep.CreatedAt = time.Unix(0, created).UTC()
	return rep, nil
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, t time.Time) ([]Resource, error) {
	cutoff := t.UnixNano()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id, kind, location FROM resources WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, err
	}
	var removed []Resource
	for rows.Next() {
		var (
			res  Resource
			kind string
		)
		if err := rows.Scan(&res.ID, &kind, &res.Location); err != nil {
			rows.Close()
			return nil, err
		}
		res.Kind = ResourceKind(kind)
		removed = append(removed, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE created_at < ?`, cutoff); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE created_at < ?`, cutoff); err != nil {
		return nil, err
	}
	return removed, tx.Commit()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func expectOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
