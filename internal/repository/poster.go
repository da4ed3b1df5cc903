// Package repository keeps the catalog of generated posters in Postgres.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/model"
)

// Poster represents a row in the posters table.
type Poster struct {
	TaskID       string      `json:"task_id"`
	Slug         string      `json:"slug"`
	City         string      `json:"city"`
	Country      string      `json:"country"`
	Theme        string      `json:"theme"`
	PosterURL    string      `json:"poster_url"`
	ThumbnailURL *string     `json:"thumbnail_url,omitempty"`
	Coords       model.Point `json:"coords"`
	Distance     int         `json:"distance"`
	NetworkType  string      `json:"network_type"`
	Format       string      `json:"format"`
	PosterSize   string      `json:"poster_size"`
	RunID        string      `json:"run_id"`
	CreatedAt    time.Time   `json:"created_at"`
}

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PosterRepository wraps all SQL used by the API and the CLI.
type PosterRepository struct {
	db  DB
	now func() time.Time
}

// NewPosterRepository constructs a repository.
func NewPosterRepository(db DB) *PosterRepository {
	return &PosterRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordPoster inserts a finished generation. Recording the same task twice
// keeps the first row.
func (r *PosterRepository) RecordPoster(ctx context.Context, taskID string, result model.PosterResult, meta model.PosterMetadata) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO posters (task_id, slug, city, country, theme, poster_url, thumbnail_url,
			latitude, longitude, distance, network_type, format, poster_size, run_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (task_id) DO NOTHING
	`, taskID, gallery.Slug(result.City), result.City, result.Country, result.Theme, result.PosterURL,
		result.ThumbnailURL, result.Coords.Lat, result.Coords.Lon, meta.Distance, meta.NetworkType,
		meta.Format, meta.PosterSize, result.CreatedAt, r.now())
	if err != nil {
		return fmt.Errorf("insert poster: %w", err)
	}
	return nil
}

// Recent returns the newest posters, at most limit of them.
func (r *PosterRepository) Recent(ctx context.Context, limit int) ([]Poster, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT task_id, slug, city, country, theme, poster_url, thumbnail_url,
			latitude, longitude, distance, network_type, format, poster_size, run_id, created_at
		FROM posters ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select posters: %w", err)
	}
	defer rows.Close()

	var out []Poster
	for rows.Next() {
		var p Poster
		if err := rows.Scan(&p.TaskID, &p.Slug, &p.City, &p.Country, &p.Theme, &p.PosterURL,
			&p.ThumbnailURL, &p.Coords.Lat, &p.Coords.Lon, &p.Distance, &p.NetworkType,
			&p.Format, &p.PosterSize, &p.RunID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan poster: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posters: %w", err)
	}
	return out, nil
}
