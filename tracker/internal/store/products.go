package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/partwatch/dbopen"
	"github.com/hazyhaar/partwatch/idgen"
)

// ScrapedProduct is the extracted state written after a successful scrape.
type ScrapedProduct struct {
	URL       string
	Name      string
	Price     float64
	Currency  string
	Image     string
	Category  string
	Brand     string
	Source    string
	Available bool
}

// CommitSnapshot is the success path of one target: in a single transaction
// it resets the target's failure counter, upserts the product row, and
// writes (or overwrites) the product's snapshot for day. Running it twice
// for the same day leaves exactly one snapshot row.
func (s *Store) CommitSnapshot(ctx context.Context, targetID string, p *ScrapedProduct, day string, now int64) (string, error) {
	var productID string
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE scrape_targets
			SET fail_count = 0, last_error = '', last_scraped_at = ?, updated_at = ?
			WHERE id = ?`, now, now, targetID); err != nil {
			return fmt.Errorf("reset target: %w", err)
		}

		err := tx.QueryRowContext(ctx,
			`SELECT id FROM products WHERE url = ?`, p.URL).Scan(&productID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			productID = idgen.New()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO products (id, url, name, current_price, currency, image,
				category, brand, source, price_change, available, scrape_day,
				last_scraped_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
				productID, p.URL, p.Name, p.Price, p.Currency, p.Image,
				p.Category, p.Brand, p.Source, p.Available, day, now, now, now); err != nil {
				return fmt.Errorf("insert product: %w", err)
			}
		case err != nil:
			return fmt.Errorf("lookup product: %w", err)
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE products
				SET name = ?, current_price = ?, currency = ?, image = ?,
				available = ?, scrape_day = ?, last_scraped_at = ?, updated_at = ?
				WHERE id = ?`,
				p.Name, p.Price, p.Currency, p.Image,
				p.Available, day, now, now, productID); err != nil {
				return fmt.Errorf("update product: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (id, product_id, day, price, currency, available, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(product_id, day) DO UPDATE SET
				price = excluded.price,
				currency = excluded.currency,
				available = excluded.available,
				recorded_at = excluded.recorded_at`,
			idgen.New(), productID, day, p.Price, p.Currency, p.Available, now); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return productID, nil
}

const productColumns = `id, url, name, current_price, currency, image,
	category, brand, source, price_change, available, scrape_day,
	last_scraped_at, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.URL, &p.Name, &p.CurrentPrice, &p.Currency, &p.Image,
		&p.Category, &p.Brand, &p.Source, &p.PriceChange, &p.Available, &p.ScrapeDay,
		&p.LastScrapedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct retrieves a product by ID, or nil if it does not exist.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListProducts returns products matching the filter, name order.
// A product absent from the filter day's snapshot set is simply not listed.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error) {
	var where []string
	var args []any

	if f.Day != "" {
		where = append(where, "scrape_day = ?")
		args = append(args, f.Day)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Brand != "" {
		where = append(where, "brand = ?")
		args = append(args, f.Brand)
	}
	if f.MinPrice != nil {
		where = append(where, "current_price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "current_price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Search != "" {
		where = append(where, "name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Search+"%")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Categories returns the distinct product categories.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, `SELECT DISTINCT category FROM products WHERE category != '' ORDER BY category`)
}

// Brands returns the distinct product brands.
func (s *Store) Brands(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, `SELECT DISTINCT brand FROM products WHERE brand != '' ORDER BY brand`)
}

func (s *Store) distinctColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SetPriceChange stores a product's materialized day-over-day delta.
func (s *Store) SetPriceChange(ctx context.Context, productID string, change float64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE products SET price_change = ? WHERE id = ?`, change, productID)
	return err
}
