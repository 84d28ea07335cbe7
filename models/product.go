package models

import "time"

// Currency is the fixed currency code every scraped price is quoted in.
const Currency = "NPR"

// RawListing holds unprocessed data exactly as a site adapter extracted it.
// It never leaves the aggregation pipeline: once its price text has been
// normalized the listing is either promoted to a Product or dropped.
type RawListing struct {
	Name        string
	RawPrice    string
	URL         string
	Site        string
	ImageURL    string
	Brand       string
	Category    string
	Description string
	ScrapedAt   time.Time
}

// Product is a listing whose price passed validation and is comparable
// across sites. The (Name, Site, Price) tuple is its identity key in the
// store: a second listing with the same key is a duplicate, not an update.
type Product struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Site        string    `json:"site"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Bounds is the plausible price range a site adapter accepts. Parsed prices
// outside the range are rejected, never clamped.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether price falls inside the bounds (inclusive).
func (b Bounds) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// ComparisonReport holds the price statistics computed over one query's
// aggregated result set. It is derived per query and never persisted.
type ComparisonReport struct {
	TotalProducts int            `json:"total_products"`
	Sites         []string       `json:"sites"`
	MinPrice      float64        `json:"min_price"`
	MaxPrice      float64        `json:"max_price"`
	AvgPrice      float64        `json:"avg_price"`
	MedianPrice   float64        `json:"median_price"`
	CountsBySite  map[string]int `json:"counts_by_site"`
}
