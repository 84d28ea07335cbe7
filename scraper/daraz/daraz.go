// Package daraz scrapes daraz.com.np, which renders its catalog with
// JavaScript and therefore needs a headless browser.
package daraz

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/config"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/services"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

const (
	siteName  = "Daraz"
	baseURL   = "https://www.daraz.com.np"
	searchURL = baseURL + "/catalog/?q="
)

// Scraper is the Daraz site adapter. It owns a headless-browser allocator
// which must be released with Close on every exit path.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	bounds models.Bounds
	retry  *utils.RetryConfig

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

// New creates a ready-to-use Daraz Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin := findChromeBinary(cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Scraper{
		cfg:    cfg,
		logger: logger,
		bounds: models.Bounds{Min: cfg.DarazMinPrice, Max: cfg.DarazMaxPrice},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}
}

func (s *Scraper) Site() string { return siteName }

func (s *Scraper) Bounds() models.Bounds { return s.bounds }

// Close releases the browser allocator. Safe to call more than once.
func (s *Scraper) Close() error {
	s.cancelAlloc()
	return nil
}

// productCard is the shape the in-page extraction script returns. Price
// candidates come back in selector priority order; the first one that
// normalizes successfully wins.
type productCard struct {
	Title  string   `json:"title"`
	Prices []string `json:"prices"`
	URL    string   `json:"url"`
	Image  string   `json:"image"`
}

// Search loads the Daraz catalog page for the query and extracts product
// listings.
func (s *Scraper) Search(ctx context.Context, query string) ([]models.RawListing, error) {
	pageURL := searchURL + url.QueryEscape(query)

	var cards []productCard
	err := s.retry.Do(ctx, "daraz-search", func() error {
		return s.runExtraction(ctx, pageURL, searchExtractionJS, &cards)
	})
	if err != nil {
		return nil, fmt.Errorf("daraz: search %q: %w", query, err)
	}

	s.logger.Debug("[daraz] %d cards extracted for %q", len(cards), query)

	seen := utils.NewStringSet()
	var listings []models.RawListing
	for _, card := range cards {
		listing, ok := s.toListing(card)
		if !ok {
			continue
		}
		if !seen.Add(listing.Name) {
			continue
		}
		listings = append(listings, listing)
		if len(listings) >= s.cfg.ResultsPerSite {
			break
		}
	}

	s.logger.Info("[daraz] %d unique listings for %q", len(listings), query)
	return listings, nil
}

// FetchDetails loads a single Daraz product page. It returns nil without an
// error when the page holds no usable product.
func (s *Scraper) FetchDetails(ctx context.Context, productURL string) (*models.RawListing, error) {
	var cards []productCard
	err := s.retry.Do(ctx, "daraz-details", func() error {
		return s.runExtraction(ctx, productURL, detailExtractionJS, &cards)
	})
	if err != nil {
		return nil, fmt.Errorf("daraz: details %s: %w", productURL, err)
	}
	if len(cards) == 0 {
		return nil, nil
	}

	card := cards[0]
	if card.URL == "" {
		card.URL = productURL
	}
	listing, ok := s.toListing(card)
	if !ok {
		return nil, nil
	}
	return &listing, nil
}

// toListing picks the first price candidate that normalizes within bounds
// and builds the raw listing. Listings without a usable name or a validated
// price are discarded.
func (s *Scraper) toListing(card productCard) (models.RawListing, bool) {
	name := services.NormalizeName(card.Title)
	if name == "" {
		return models.RawListing{}, false
	}

	rawPrice := ""
	for _, candidate := range card.Prices {
		if _, err := services.NormalizePrice(candidate, s.bounds); err == nil {
			rawPrice = candidate
			break
		}
	}
	if rawPrice == "" {
		s.logger.Debug("[daraz] No valid price for %q (candidates: %v)", name, card.Prices)
		return models.RawListing{}, false
	}

	link := card.URL
	if link != "" && !strings.HasPrefix(link, "http") {
		if strings.HasPrefix(link, "//") {
			link = "https:" + link
		} else {
			link = baseURL + link
		}
	}

	return models.RawListing{
		Name:      name,
		RawPrice:  rawPrice,
		URL:       link,
		Site:      siteName,
		ImageURL:  card.Image,
		ScrapedAt: time.Now(),
	}, true
}

// runExtraction navigates to pageURL in a fresh browser tab and runs the
// extraction script. The tab is always released before returning.
func (s *Scraper) runExtraction(ctx context.Context, pageURL, script string, out *[]productCard) error {
	tabCtx, cancelTab := chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx,
		time.Duration(s.cfg.RequestTimeoutSec)*time.Second)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(script, out),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("browser extraction: %w", err)
	}
	return nil
}

// searchExtractionJS walks the catalog page. Card, title and price selectors
// are tried in priority order; every matching price text is reported as a
// candidate.
const searchExtractionJS = `
(function() {
	var cardSelectors = [
		'[data-qa-locator="product-item"]',
		'.product-card',
		'.c-product-card',
		'.product-item',
		'[data-tracking="product-card"]',
		'.sku-item'
	];
	var titleSelectors = ['.title', '.name', 'h4', '.product-title', '[title]'];
	var priceSelectors = ['.price', '.product-price', '.c-product-card__price', '[data-price]', '.origin-price'];

	var items = [];
	for (var i = 0; i < cardSelectors.length && items.length === 0; i++) {
		items = Array.prototype.slice.call(document.querySelectorAll(cardSelectors[i]));
	}

	var results = [];
	for (var j = 0; j < items.length; j++) {
		var item = items[j];

		var title = '';
		for (var t = 0; t < titleSelectors.length; t++) {
			var el = item.querySelector(titleSelectors[t]);
			if (el) {
				title = (el.innerText || el.getAttribute('title') || '').trim();
				if (title.length > 3) break;
			}
		}

		var prices = [];
		for (var p = 0; p < priceSelectors.length; p++) {
			var priceEl = item.querySelector(priceSelectors[p]);
			if (priceEl) {
				var text = priceEl.innerText.trim();
				if (text) prices.push(text);
			}
		}
		if (prices.length === 0) {
			var matches = item.innerText.match(/Rs\.?\s*[\d,]+\.?\d*/g) || [];
			prices = matches;
		}

		var linkEl = item.querySelector('a[href]');
		var link = linkEl ? linkEl.getAttribute('href') : '';

		var imgEl = item.querySelector('img[src]');
		var image = imgEl ? imgEl.src : '';

		results.push({ title: title, prices: prices, url: link, image: image });
	}
	return results;
})()
`

// detailExtractionJS extracts a single product from its detail page.
const detailExtractionJS = `
(function() {
	var title = document.title
		.replace(' | Daraz Nepal', '')
		.replace(' - Buy Online at Best Price', '')
		.trim();
	var h1 = document.querySelector('h1.pdp-mod-product-badge-title, h1');
	if (h1 && h1.innerText.trim()) title = h1.innerText.trim();

	var priceSelectors = ['.pdp-price', '.product-price', '.price', '[data-price]'];
	var prices = [];
	for (var p = 0; p < priceSelectors.length; p++) {
		var el = document.querySelector(priceSelectors[p]);
		if (el) {
			var text = el.innerText.trim();
			if (text) prices.push(text);
		}
	}
	if (prices.length === 0) {
		var matches = document.body.innerText.match(/Rs\.?\s*[\d,]+\.?\d*/g) || [];
		prices = matches.slice(0, 5);
	}

	var imgEl = document.querySelector('.pdp-mod-common-image img, img');
	var image = imgEl ? imgEl.src : '';

	return [{ title: title, prices: prices, url: window.location.href, image: image }];
})()
`

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
