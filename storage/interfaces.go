package storage

import (
	"context"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
)

// ProductTx is the minimal surface the deduplicating persister needs:
// look up a row by identity key, insert a new one.
type ProductTx interface {
	// FindByIdentity reports whether a row with the exact
	// (name, site, price) key already exists.
	FindByIdentity(ctx context.Context, name, site string, price float64) (bool, error)

	// Insert appends a new product row.
	Insert(ctx context.Context, p models.Product) error
}

// ProductStore is the long-lived, append-only product store.
type ProductStore interface {
	ProductTx

	// WithinTx runs fn against a transactional view of the store. If fn
	// returns an error nothing fn did is committed.
	WithinTx(ctx context.Context, fn func(tx ProductTx) error) error

	// FetchAll returns every stored product ordered by price.
	FetchAll(ctx context.Context) ([]models.Product, error)

	Close() error
}

// ProductExporter writes products to an external tabular format.
type ProductExporter interface {
	WriteProducts(products []models.Product) error
	Close() error
}
