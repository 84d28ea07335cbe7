package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
)

// PostgresStore persists products to PostgreSQL. The products table is
// append-only: rows are never updated or deleted by the scraper, and the
// UNIQUE (name, site, price) constraint backstops the identity-key dedup
// check against concurrent writers.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id          SERIAL PRIMARY KEY,
			name        VARCHAR(150)  NOT NULL,
			price       NUMERIC(12,2) NOT NULL,
			currency    VARCHAR(10)   NOT NULL DEFAULT 'NPR',
			site        VARCHAR(100)  NOT NULL,
			url         TEXT          NOT NULL,
			image_url   TEXT          NOT NULL DEFAULT '',
			brand       VARCHAR(100)  NOT NULL DEFAULT '',
			category    VARCHAR(100)  NOT NULL DEFAULT '',
			description TEXT          NOT NULL DEFAULT '',
			scraped_at  TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			UNIQUE (name, site, price)
		);

		CREATE INDEX IF NOT EXISTS idx_products_price ON products(price);
		CREATE INDEX IF NOT EXISTS idx_products_site  ON products(site);
	`)
	return err
}

// FindByIdentity reports whether a row with the exact (name, site, price)
// identity key exists.
func (ps *PostgresStore) FindByIdentity(ctx context.Context, name, site string, price float64) (bool, error) {
	return findByIdentity(ctx, ps.db, name, site, price)
}

// Insert appends a new product row. A concurrent duplicate degrades to a
// no-op through the unique constraint rather than failing the batch.
func (ps *PostgresStore) Insert(ctx context.Context, p models.Product) error {
	return insert(ctx, ps.db, p)
}

// WithinTx runs fn inside a single database transaction. Any error from fn
// rolls the whole batch back.
func (ps *PostgresStore) WithinTx(ctx context.Context, fn func(tx ProductTx) error) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// FetchAll retrieves every stored product ordered by price.
func (ps *PostgresStore) FetchAll(ctx context.Context) ([]models.Product, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, name, price, currency, site, url, image_url, brand, category, description, scraped_at
		FROM products
		ORDER BY price, id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Currency, &p.Site, &p.URL,
			&p.ImageURL, &p.Brand, &p.Category, &p.Description, &p.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// pgTx adapts a sql.Tx to the ProductTx interface.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) FindByIdentity(ctx context.Context, name, site string, price float64) (bool, error) {
	return findByIdentity(ctx, t.tx, name, site, price)
}

func (t *pgTx) Insert(ctx context.Context, p models.Product) error {
	return insert(ctx, t.tx, p)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByIdentity(ctx context.Context, q querier, name, site string, price float64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM products WHERE name = $1 AND site = $2 AND price = $3
		)
	`, name, site, price).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: identity lookup: %w", err)
	}
	return exists, nil
}

func insert(ctx context.Context, q querier, p models.Product) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO products (name, price, currency, site, url, image_url, brand, category, description, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name, site, price) DO NOTHING
	`, p.Name, p.Price, p.Currency, p.Site, p.URL, p.ImageURL, p.Brand, p.Category, p.Description, p.ScrapedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}
