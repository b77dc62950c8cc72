package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/partwatch/dbopen"
)

// UpsertTarget adds a target to the registry. URLs are unique; adding an
// existing URL is a silent no-op. Returns true when a row was inserted.
func (s *Store) UpsertTarget(ctx context.Context, t *Target) (bool, error) {
	now := time.Now().UnixMilli()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = now
	}
	if t.Render == "" {
		t.Render = "http"
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO scrape_targets (id, url, source, category, brand,
		name_selector, price_selector, image_selector, availability_selector,
		render, active, fail_count, last_error, last_scraped_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		t.ID, t.URL, t.Source, t.Category, t.Brand,
		t.NameSelector, t.PriceSelector, t.ImageSelector, t.AvailabilitySelector,
		t.Render, t.Active, t.FailCount, t.LastError, t.LastScrapedAt,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const targetColumns = `id, url, source, category, brand,
	name_selector, price_selector, image_selector, availability_selector,
	render, active, fail_count, last_error, last_scraped_at, created_at, updated_at`

func scanTarget(row interface{ Scan(...any) error }) (*Target, error) {
	var t Target
	err := row.Scan(&t.ID, &t.URL, &t.Source, &t.Category, &t.Brand,
		&t.NameSelector, &t.PriceSelector, &t.ImageSelector, &t.AvailabilitySelector,
		&t.Render, &t.Active, &t.FailCount, &t.LastError, &t.LastScrapedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTarget retrieves a target by ID, or nil if it does not exist.
func (s *Store) GetTarget(ctx context.Context, id string) (*Target, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+targetColumns+` FROM scrape_targets WHERE id = ?`, id)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// GetTargetByURL retrieves a target by URL, or nil if it does not exist.
func (s *Store) GetTargetByURL(ctx context.Context, url string) (*Target, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+targetColumns+` FROM scrape_targets WHERE url = ?`, url)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListActiveTargets returns active targets in insertion order. The order is
// stable across runs so that run behavior is reproducible.
func (s *Store) ListActiveTargets(ctx context.Context) ([]*Target, error) {
	return s.listTargets(ctx,
		`SELECT `+targetColumns+` FROM scrape_targets
		WHERE active = 1 ORDER BY created_at, id`)
}

// ListTargets returns all targets, inactive ones included, in insertion order.
func (s *Store) ListTargets(ctx context.Context) ([]*Target, error) {
	return s.listTargets(ctx,
		`SELECT `+targetColumns+` FROM scrape_targets ORDER BY created_at, id`)
}

func (s *Store) listTargets(ctx context.Context, query string, args ...any) ([]*Target, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// RecordTargetFailure increments a target's consecutive-failure counter and
// stores the error message. When the counter reaches threshold the target is
// deactivated. Returns the new counter and whether deactivation happened.
func (s *Store) RecordTargetFailure(ctx context.Context, id, message string, threshold int) (failCount int, deactivated bool, err error) {
	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		if _, err := tx.ExecContext(ctx,
			`UPDATE scrape_targets
			SET fail_count = fail_count + 1, last_error = ?, updated_at = ?
			WHERE id = ?`, message, now, id); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT fail_count FROM scrape_targets WHERE id = ?`, id).Scan(&failCount); err != nil {
			return err
		}
		if failCount >= threshold {
			if _, err := tx.ExecContext(ctx,
				`UPDATE scrape_targets SET active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
				return err
			}
			deactivated = true
		}
		return nil
	})
	return failCount, deactivated, err
}

// ReactivateTarget sets a target active again and resets its failure counter.
func (s *Store) ReactivateTarget(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE scrape_targets
		SET active = 1, fail_count = 0, last_error = '', updated_at = ?
		WHERE id = ?`, time.Now().UnixMilli(), id)
	return err
}

// SetTargetActive toggles a target without touching the failure counter.
func (s *Store) SetTargetActive(ctx context.Context, id string, active bool) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE scrape_targets SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UnixMilli(), id)
	return err
}
