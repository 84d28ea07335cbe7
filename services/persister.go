package services

import (
	"context"
	"fmt"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/storage"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

// Persister writes validated products into the long-lived store, skipping
// rows whose (name, site, price) identity key is already present. A matched
// key is a no-op: stale metadata on the stored row is not refreshed.
type Persister struct {
	store  storage.ProductStore
	logger *utils.Logger
}

// NewPersister creates a Persister over the given store.
func NewPersister(store storage.ProductStore, logger *utils.Logger) *Persister {
	return &Persister{store: store, logger: logger}
}

// Persist stores the batch and returns the number of newly written rows.
// The batch is atomic: any store error aborts it with no partial writes and
// a zero count. Earlier Persist calls are unaffected.
func (p *Persister) Persist(ctx context.Context, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	written := 0
	err := p.store.WithinTx(ctx, func(tx storage.ProductTx) error {
		for _, prod := range products {
			exists, err := tx.FindByIdentity(ctx, prod.Name, prod.Site, prod.Price)
			if err != nil {
				return fmt.Errorf("lookup %q: %w", prod.Name, err)
			}
			if exists {
				p.logger.Debug("[persister] Duplicate skipped: %q on %s at %.2f",
					prod.Name, prod.Site, prod.Price)
				continue
			}
			if err := tx.Insert(ctx, prod); err != nil {
				return fmt.Errorf("insert %q: %w", prod.Name, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("persist batch: %w", err)
	}

	p.logger.Info("[persister] Stored %d new of %d products", written, len(products))
	return written, nil
}
