package services

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/scraper"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

// Aggregator fans a search query out across every registered site adapter,
// isolates per-site failures and returns the combined result set sorted
// ascending by price.
type Aggregator struct {
	registry *scraper.Registry
	logger   *utils.Logger
	pacer    *rate.Limiter
	parallel int
}

// NewAggregator wires an Aggregator. delay is the pacing interval between
// adapter requests (zero disables pacing); parallel > 1 enables bounded
// fan-out across adapters.
func NewAggregator(registry *scraper.Registry, logger *utils.Logger, delay time.Duration, parallel int) *Aggregator {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	if parallel < 1 {
		parallel = 1
	}
	return &Aggregator{
		registry: registry,
		logger:   logger,
		pacer:    rate.NewLimiter(limit, 1),
		parallel: parallel,
	}
}

// Aggregate queries every adapter in registration order and returns the
// validated products sorted by price. A failing adapter is logged and
// skipped; it never aborts the query. Cancelling ctx stops the remaining
// adapter queue but keeps results already collected. An empty slice means
// "no products found" — it is never an error.
func (a *Aggregator) Aggregate(ctx context.Context, query string) []models.Product {
	adapters := a.registry.Adapters()
	results := make([][]models.Product, len(adapters))

	if a.parallel > 1 {
		pool := utils.NewWorkerPool(a.parallel, 0)
		for i, ad := range adapters {
			i, ad := i, ad
			pool.Submit(func() {
				if err := a.pacer.Wait(ctx); err != nil {
					a.logger.Warn("[aggregator] %s skipped: %v", ad.Site(), err)
					return
				}
				results[i] = a.searchSite(ctx, ad, query)
			})
		}
		pool.Wait()
	} else {
		for i, ad := range adapters {
			if err := a.pacer.Wait(ctx); err != nil {
				a.logger.Warn("[aggregator] Stopping before %s: %v", ad.Site(), err)
				break
			}
			results[i] = a.searchSite(ctx, ad, query)
		}
	}

	var products []models.Product
	for _, r := range results {
		products = append(products, r...)
	}
	sortByPrice(products)

	a.logger.Info("[aggregator] Query %q yielded %d products across %d sites",
		query, len(products), len(adapters))
	return products
}

// searchSite runs one adapter's search and normalizes its raw listings.
// Every failure mode ends here: an adapter error yields nil, an unparseable
// or out-of-range price drops only that listing.
func (a *Aggregator) searchSite(ctx context.Context, ad scraper.Adapter, query string) []models.Product {
	a.logger.Info("[aggregator] Searching %s for %q...", ad.Site(), query)

	raw, err := ad.Search(ctx, query)
	if err != nil {
		a.logger.Error("[aggregator] %s search failed: %v", ad.Site(), err)
		return nil
	}

	products := a.normalize(ad, raw)
	a.logger.Info("[aggregator] %s: %d listings, %d valid", ad.Site(), len(raw), len(products))
	return products
}

// normalize promotes raw listings to products, dropping any whose price text
// fails normalization against the adapter's bounds.
func (a *Aggregator) normalize(ad scraper.Adapter, raw []models.RawListing) []models.Product {
	products := make([]models.Product, 0, len(raw))
	for _, r := range raw {
		name := NormalizeName(r.Name)
		if name == "" {
			a.logger.Debug("[aggregator] %s: dropping listing with no name (%s)", ad.Site(), r.URL)
			continue
		}

		price, err := NormalizePrice(r.RawPrice, ad.Bounds())
		if err != nil {
			a.logger.Debug("[aggregator] %s: dropping %q: %v", ad.Site(), name, err)
			continue
		}

		scrapedAt := r.ScrapedAt
		if scrapedAt.IsZero() {
			scrapedAt = time.Now()
		}

		products = append(products, models.Product{
			Name:        name,
			Price:       price,
			Currency:    models.Currency,
			Site:        ad.Site(),
			URL:         r.URL,
			ImageURL:    r.ImageURL,
			Brand:       r.Brand,
			Category:    r.Category,
			Description: r.Description,
			ScrapedAt:   scrapedAt,
		})
	}
	return products
}

// FetchDetails routes each URL to the adapter owning its site and collects
// the normalized detail records. Unroutable URLs and failed fetches are
// logged and skipped.
func (a *Aggregator) FetchDetails(ctx context.Context, urls []string) []models.Product {
	var products []models.Product
	for _, u := range urls {
		ad, ok := a.registry.ForURL(u)
		if !ok {
			a.logger.Warn("[aggregator] No adapter for URL %s", u)
			continue
		}
		if err := a.pacer.Wait(ctx); err != nil {
			a.logger.Warn("[aggregator] Detail fetch stopped: %v", err)
			break
		}

		raw, err := ad.FetchDetails(ctx, u)
		if err != nil {
			a.logger.Error("[aggregator] %s detail fetch failed for %s: %v", ad.Site(), u, err)
			continue
		}
		if raw == nil {
			continue
		}
		products = append(products, a.normalize(ad, []models.RawListing{*raw})...)
	}
	sortByPrice(products)
	return products
}

// sortByPrice orders products ascending by price. The stable sort keeps
// registration order for equal prices.
func sortByPrice(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Price < products[j].Price
	})
}
