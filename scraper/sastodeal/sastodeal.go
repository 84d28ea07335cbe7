// Package sastodeal scrapes sastodeal.com, which serves a server-rendered
// catalog reachable with plain HTTP.
package sastodeal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/config"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/services"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

const (
	siteName  = "SastoDeal"
	baseURL   = "https://www.sastodeal.com"
	searchURL = baseURL + "/catalogsearch/result/?q="

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Selector candidates in priority order. The catalog markup has changed
// between redesigns, so each location is probed until one matches.
var (
	cardSelectors  = []string{".product-item", ".product-card", "li.item.product", ".sd-product"}
	titleSelectors = []string{".product-item-link", ".product-name", ".product-title", "a.title", "h2 a", "[title]"}
	priceSelectors = []string{"[data-price-type=\"finalPrice\"] .price", ".special-price .price", ".price", ".product-price"}
)

// Scraper is the SastoDeal site adapter.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	bounds models.Bounds
	client *http.Client
}

// New creates a ready-to-use SastoDeal Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		bounds: models.Bounds{Min: cfg.SastoDealMinPrice, Max: cfg.SastoDealMaxPrice},
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		},
	}
}

func (s *Scraper) Site() string { return siteName }

func (s *Scraper) Bounds() models.Bounds { return s.bounds }

// Close is a no-op: the adapter holds no resources beyond the HTTP client.
func (s *Scraper) Close() error { return nil }

// Search fetches the catalog search page and extracts product listings.
func (s *Scraper) Search(ctx context.Context, query string) ([]models.RawListing, error) {
	doc, err := s.fetch(ctx, searchURL+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("sastodeal: search %q: %w", query, err)
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}

	seen := utils.NewStringSet()
	var listings []models.RawListing
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		listing, ok := s.extractCard(card)
		if !ok {
			return true
		}
		if !seen.Add(listing.Name) {
			return true
		}
		listings = append(listings, listing)
		return len(listings) < s.cfg.ResultsPerSite
	})

	s.logger.Info("[sastodeal] %d unique listings for %q", len(listings), query)
	return listings, nil
}

// FetchDetails loads a single product page. It returns nil without an error
// when the page holds no usable product.
func (s *Scraper) FetchDetails(ctx context.Context, productURL string) (*models.RawListing, error) {
	doc, err := s.fetch(ctx, productURL)
	if err != nil {
		return nil, fmt.Errorf("sastodeal: details %s: %w", productURL, err)
	}

	name := firstText(doc.Selection, []string{"h1.page-title", "h1", "title"})
	rawPrice := s.firstValidPrice(doc.Selection)
	if name == "" || rawPrice == "" {
		return nil, nil
	}

	image, _ := doc.Find(".product.media img, .gallery img, img").First().Attr("src")

	return &models.RawListing{
		Name:      name,
		RawPrice:  rawPrice,
		URL:       productURL,
		Site:      siteName,
		ImageURL:  image,
		ScrapedAt: time.Now(),
	}, nil
}

// extractCard pulls one listing out of a catalog card. Listings without a
// usable name or a validated price are discarded.
func (s *Scraper) extractCard(card *goquery.Selection) (models.RawListing, bool) {
	name := firstText(card, titleSelectors)
	if name == "" {
		return models.RawListing{}, false
	}

	rawPrice := s.firstValidPrice(card)
	if rawPrice == "" {
		s.logger.Debug("[sastodeal] No valid price for %q", name)
		return models.RawListing{}, false
	}

	link, _ := card.Find("a[href]").First().Attr("href")
	if link != "" && !strings.HasPrefix(link, "http") {
		link = baseURL + link
	}

	image, _ := card.Find("img").First().Attr("src")

	return models.RawListing{
		Name:      services.NormalizeName(name),
		RawPrice:  rawPrice,
		URL:       link,
		Site:      siteName,
		ImageURL:  image,
		ScrapedAt: time.Now(),
	}, true
}

// firstValidPrice tries the price locations in priority order and returns
// the first text that normalizes within the adapter's bounds.
func (s *Scraper) firstValidPrice(root *goquery.Selection) string {
	for _, sel := range priceSelectors {
		text := strings.TrimSpace(root.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if _, err := services.NormalizePrice(text, s.bounds); err == nil {
			return text
		}
	}
	return ""
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ne;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// firstText returns the first non-empty text among the selector candidates,
// falling back to the element's title attribute.
func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		el := root.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if text := services.NormalizeName(el.Text()); text != "" {
			return text
		}
		if title, ok := el.Attr("title"); ok {
			if text := services.NormalizeName(title); text != "" {
				return text
			}
		}
	}
	return ""
}
