package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to databaseURL with the lib/pq driver and verifies the
// connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS fiftyone_entries (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			api_url        TEXT NOT NULL UNIQUE,
			image_sources  JSONB NOT NULL DEFAULT '[]',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_fiftyone_entries_created_at ON fiftyone_entries (created_at);
	`
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *Postgres) List(ctx context.Context) ([]model.Entry, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, title, api_url, image_sources, created_at FROM fiftyone_entries ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id string) (model.Entry, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT id, title, api_url, image_sources, created_at FROM fiftyone_entries WHERE id = $1",
		id,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, ErrNotFound
	}
	return e, err
}

func (p *Postgres) Create(ctx context.Context, entry model.Entry) error {
	sources, err := encodeSources(entry.ImageSources)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		"INSERT INTO fiftyone_entries (id, title, api_url, image_sources, created_at) VALUES ($1, $2, $3, $4, $5)",
		entry.ID, entry.Title, entry.APIURL, sources, entry.CreatedAt,
	)
	return err
}

func (p *Postgres) UpdateImageSources(ctx context.Context, id string, sources []model.ImageSource) error {
	data, err := encodeSources(sources)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		"UPDATE fiftyone_entries SET image_sources = $1 WHERE id = $2",
		data, id,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM fiftyone_entries WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (model.Entry, error) {
	var (
		e       model.Entry
		sources []byte
	)
	if err := s.Scan(&e.ID, &e.Title, &e.APIURL, &sources, &e.CreatedAt); err != nil {
		return model.Entry{}, err
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &e.ImageSources); err != nil {
			return model.Entry{}, fmt.Errorf("decode image sources of %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func encodeSources(sources []model.ImageSource) ([]byte, error) {
	if sources == nil {
		sources = []model.ImageSource{}
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encode image sources: %w", err)
	}
	return data, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
