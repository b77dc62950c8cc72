package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertSource adds a retailer.
func (s *Store) InsertSource(ctx context.Context, src *Source) error {
	now := time.Now().UnixMilli()
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	if src.UpdatedAt == 0 {
		src.UpdatedAt = now
	}
	if src.Status == "" {
		src.Status = "active"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sources (id, name, homepage, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.Homepage, src.Status, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSourceByName returns the retailer matching name (case-insensitive),
// or nil if none exists.
func (s *Store) GetSourceByName(ctx context.Context, name string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, homepage, status, created_at, updated_at
		FROM sources WHERE name = ? COLLATE NOCASE`, name)
	var src Source
	err := row.Scan(&src.ID, &src.Name, &src.Homepage, &src.Status, &src.CreatedAt, &src.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// ListSources returns all retailers in name order.
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, homepage, status, created_at, updated_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Name, &src.Homepage, &src.Status,
			&src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// UpdateSourceStatus sets a retailer's status ("active", "inactive", "error").
func (s *Store) UpdateSourceStatus(ctx context.Context, id, status string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	return err
}
