package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SnapshotsOn returns the day's snapshots joined with product dimensions,
// ordered by product ID for determinism.
func (s *Store) SnapshotsOn(ctx context.Context, day string) ([]*DaySnapshot, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT h.product_id, h.day, h.price, h.currency, h.available,
		p.name, p.category, p.brand, p.source
		FROM price_history h
		JOIN products p ON p.id = h.product_id
		WHERE h.day = ?
		ORDER BY h.product_id`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*DaySnapshot
	for rows.Next() {
		var d DaySnapshot
		if err := rows.Scan(&d.ProductID, &d.Day, &d.Price, &d.Currency, &d.Available,
			&d.Name, &d.Category, &d.Brand, &d.Source); err != nil {
			return nil, fmt.Errorf("scan day snapshot: %w", err)
		}
		snaps = append(snaps, &d)
	}
	return snaps, rows.Err()
}

// PrevSnapshot returns the product's snapshot with the latest day strictly
// before the given day, or nil if the product has no earlier history.
// The previous day does not have to be adjacent: a product skipped for a
// stretch of days still compares against its last recorded price.
func (s *Store) PrevSnapshot(ctx context.Context, productID, beforeDay string) (*Snapshot, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, product_id, day, price, currency, available, recorded_at
		FROM price_history
		WHERE product_id = ? AND day < ?
		ORDER BY day DESC LIMIT 1`, productID, beforeDay)
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.ProductID, &snap.Day, &snap.Price,
		&snap.Currency, &snap.Available, &snap.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ProductHistory returns up to limit snapshots for a product, newest first.
func (s *Store) ProductHistory(ctx context.Context, productID string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, product_id, day, price, currency, available, recorded_at
		FROM price_history
		WHERE product_id = ?
		ORDER BY day DESC LIMIT ?`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.ProductID, &snap.Day, &snap.Price,
			&snap.Currency, &snap.Available, &snap.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
