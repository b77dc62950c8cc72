// Package store provides the data access layer for the price tracker.
//
// It receives an already-opened *sql.DB (see dbopen) and owns the schema
// for sources, scrape targets, products, price history, and the fetch log.
package store

import "database/sql"

// Store wraps the tracker database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// ApplySchema creates all tables and indexes. Idempotent.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
