package scraper

import (
	"context"
	"strings"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
)

// Adapter is the capability contract every site scraper satisfies. How an
// adapter fetches pages (plain HTTP, headless browser) is its own business;
// the aggregation pipeline only consumes the RawListings it returns.
type Adapter interface {
	// Site returns the adapter's site identifier, e.g. "Daraz".
	Site() string

	// Bounds returns the plausible price range for this site. Prices parsed
	// outside it are rejected during normalization.
	Bounds() models.Bounds

	// Search returns raw candidate listings for a query. An error means the
	// whole site failed for this query; partial extraction problems are
	// handled inside the adapter by dropping the affected listings.
	Search(ctx context.Context, query string) ([]models.RawListing, error)

	// FetchDetails scrapes a single product page. A nil listing with a nil
	// error means the page held no usable product.
	FetchDetails(ctx context.Context, url string) (*models.RawListing, error)

	// Close releases any resources the adapter owns, such as a browser
	// session. Safe to call more than once.
	Close() error
}

// Registry is an explicit, ordered collection of site adapters. It is built
// once at startup and handed to the aggregator by value — there is no shared
// global registry. Registration order is the order sites are queried in.
type Registry struct {
	adapters []Adapter
	bySite   map[string]Adapter
}

// NewRegistry creates a Registry holding the given adapters in order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{bySite: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register appends an adapter. A second adapter for the same site replaces
// the lookup entry but keeps the original query position.
func (r *Registry) Register(a Adapter) {
	key := strings.ToLower(a.Site())
	if _, exists := r.bySite[key]; exists {
		for i, existing := range r.adapters {
			if strings.ToLower(existing.Site()) == key {
				r.adapters[i] = a
				break
			}
		}
	} else {
		r.adapters = append(r.adapters, a)
	}
	r.bySite[key] = a
}

// Adapters returns the registered adapters in registration order. The slice
// is a copy; callers cannot reorder the registry through it.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Lookup finds an adapter by site name, case-insensitively.
func (r *Registry) Lookup(site string) (Adapter, bool) {
	a, ok := r.bySite[strings.ToLower(site)]
	return a, ok
}

// ForURL finds the adapter whose site name appears in the URL's host part.
func (r *Registry) ForURL(url string) (Adapter, bool) {
	lower := strings.ToLower(url)
	for _, a := range r.adapters {
		if strings.Contains(lower, strings.ToLower(a.Site())) {
			return a, true
		}
	}
	return nil, false
}

// Close releases every adapter's resources.
func (r *Registry) Close() {
	for _, a := range r.adapters {
		_ = a.Close()
	}
}
