package services

import (
	"context"
	"errors"
	"testing"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/scraper"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

// fakeAdapter is an in-memory scraper.Adapter for pipeline tests.
type fakeAdapter struct {
	site     string
	bounds   models.Bounds
	listings []models.RawListing
	err      error
	called   bool
	onSearch func()
}

func (f *fakeAdapter) Site() string          { return f.site }
func (f *fakeAdapter) Bounds() models.Bounds { return f.bounds }
func (f *fakeAdapter) Close() error          { return nil }

func (f *fakeAdapter) Search(_ context.Context, _ string) ([]models.RawListing, error) {
	f.called = true
	if f.onSearch != nil {
		f.onSearch()
	}
	return f.listings, f.err
}

func (f *fakeAdapter) FetchDetails(_ context.Context, _ string) (*models.RawListing, error) {
	f.called = true
	if len(f.listings) == 0 {
		return nil, f.err
	}
	return &f.listings[0], f.err
}

func wideBounds() models.Bounds { return models.Bounds{Min: 1, Max: 10000000} }

func listing(site, name, price string) models.RawListing {
	return models.RawListing{Name: name, RawPrice: price, Site: site, URL: "https://example.com/" + name}
}

func newTestAggregator(adapters ...scraper.Adapter) *Aggregator {
	return NewAggregator(scraper.NewRegistry(adapters...), utils.NewLogger(), 0, 1)
}

func TestAggregateFaultIsolation(t *testing.T) {
	good := &fakeAdapter{site: "Daraz", bounds: wideBounds(), listings: []models.RawListing{
		listing("Daraz", "Phone A", "Rs. 30,000"),
	}}
	broken := &fakeAdapter{site: "SastoDeal", bounds: wideBounds(), err: errors.New("connection refused")}
	alsoGood := &fakeAdapter{site: "HamroBazar", bounds: wideBounds(), listings: []models.RawListing{
		listing("HamroBazar", "Phone B", "Rs. 25,000"),
	}}

	products := newTestAggregator(good, broken, alsoGood).Aggregate(context.Background(), "phone")

	if len(products) != 2 {
		t.Fatalf("expected 2 products despite one failing adapter, got %d", len(products))
	}
	if products[0].Price != 25000 || products[1].Price != 30000 {
		t.Errorf("not sorted by price: %v, %v", products[0].Price, products[1].Price)
	}
}

func TestAggregateSortsByPriceAscending(t *testing.T) {
	a := &fakeAdapter{site: "Daraz", bounds: wideBounds(), listings: []models.RawListing{
		listing("Daraz", "C", "Rs. 300"),
		listing("Daraz", "A", "Rs. 100"),
	}}
	b := &fakeAdapter{site: "SastoDeal", bounds: wideBounds(), listings: []models.RawListing{
		listing("SastoDeal", "B", "Rs. 200"),
	}}

	products := newTestAggregator(a, b).Aggregate(context.Background(), "x")

	want := []float64{100, 200, 300}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	for i, p := range products {
		if p.Price != want[i] {
			t.Errorf("products[%d].Price = %.0f; want %.0f", i, p.Price, want[i])
		}
	}
}

func TestAggregateDropsInvalidListings(t *testing.T) {
	a := &fakeAdapter{site: "Daraz", bounds: models.Bounds{Min: 100, Max: 100000}, listings: []models.RawListing{
		listing("Daraz", "Good", "Rs. 5,000"),
		listing("Daraz", "Unparseable", "Call for price"),
		listing("Daraz", "TooCheap", "Rs. 5"),
		{RawPrice: "Rs. 1,000"}, // no name
	}}

	products := newTestAggregator(a).Aggregate(context.Background(), "x")

	if len(products) != 1 {
		t.Fatalf("expected 1 valid product, got %d", len(products))
	}
	if products[0].Name != "Good" || products[0].Currency != models.Currency {
		t.Errorf("unexpected product: %+v", products[0])
	}
}

func TestAggregateAllFailingIsEmptyNotError(t *testing.T) {
	a := &fakeAdapter{site: "Daraz", bounds: wideBounds(), err: errors.New("boom")}
	b := &fakeAdapter{site: "SastoDeal", bounds: wideBounds(), err: errors.New("boom")}

	products := newTestAggregator(a, b).Aggregate(context.Background(), "x")
	if len(products) != 0 {
		t.Errorf("expected empty result, got %d products", len(products))
	}
}

func TestAggregateCancelKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &fakeAdapter{site: "Daraz", bounds: wideBounds(), listings: []models.RawListing{
		listing("Daraz", "Collected", "Rs. 1,000"),
	}}
	// Cancellation lands while the first adapter is mid-search.
	first.onSearch = cancel
	second := &fakeAdapter{site: "SastoDeal", bounds: wideBounds(), listings: []models.RawListing{
		listing("SastoDeal", "Never", "Rs. 2,000"),
	}}

	products := newTestAggregator(first, second).Aggregate(ctx, "x")

	if second.called {
		t.Error("second adapter should not run after cancellation")
	}
	if len(products) != 1 || products[0].Name != "Collected" {
		t.Errorf("partial results lost: %+v", products)
	}
}

func TestAggregateParallelPreservesIsolationAndOrder(t *testing.T) {
	a := &fakeAdapter{site: "Daraz", bounds: wideBounds(), listings: []models.RawListing{
		listing("Daraz", "A", "Rs. 500"),
	}}
	broken := &fakeAdapter{site: "SastoDeal", bounds: wideBounds(), err: errors.New("boom")}
	c := &fakeAdapter{site: "HamroBazar", bounds: wideBounds(), listings: []models.RawListing{
		listing("HamroBazar", "C", "Rs. 300"),
	}}

	agg := NewAggregator(scraper.NewRegistry(a, broken, c), utils.NewLogger(), 0, 3)
	products := agg.Aggregate(context.Background(), "x")

	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Price != 300 || products[1].Price != 500 {
		t.Errorf("not sorted: %+v", products)
	}
}

func TestFetchDetailsRoutesBySite(t *testing.T) {
	darazAd := &fakeAdapter{site: "Daraz", bounds: wideBounds(), listings: []models.RawListing{
		listing("Daraz", "Detail", "Rs. 9,999"),
	}}
	other := &fakeAdapter{site: "SastoDeal", bounds: wideBounds()}

	agg := newTestAggregator(darazAd, other)
	products := agg.FetchDetails(context.Background(),
		[]string{"https://www.daraz.com.np/products/detail.html"})

	if len(products) != 1 || products[0].Site != "Daraz" {
		t.Fatalf("expected one Daraz detail product, got %+v", products)
	}
	if other.called {
		t.Error("URL should not have been routed to SastoDeal")
	}
}
