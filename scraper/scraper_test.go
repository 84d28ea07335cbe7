package scraper

import (
	"context"
	"testing"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
)

type stubAdapter struct {
	site string
}

func (s *stubAdapter) Site() string          { return s.site }
func (s *stubAdapter) Bounds() models.Bounds { return models.Bounds{Min: 1, Max: 1000} }
func (s *stubAdapter) Close() error          { return nil }

func (s *stubAdapter) Search(context.Context, string) ([]models.RawListing, error) {
	return nil, nil
}

func (s *stubAdapter) FetchDetails(context.Context, string) (*models.RawListing, error) {
	return nil, nil
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(&stubAdapter{site: "Daraz"}, &stubAdapter{site: "SastoDeal"}, &stubAdapter{site: "HamroBazar"})

	adapters := r.Adapters()
	want := []string{"Daraz", "SastoDeal", "HamroBazar"}
	if len(adapters) != len(want) {
		t.Fatalf("got %d adapters; want %d", len(adapters), len(want))
	}
	for i, a := range adapters {
		if a.Site() != want[i] {
			t.Errorf("adapters[%d] = %s; want %s", i, a.Site(), want[i])
		}
	}
}

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	r := NewRegistry(&stubAdapter{site: "Daraz"})

	if _, ok := r.Lookup("daraz"); !ok {
		t.Error("Lookup should be case-insensitive")
	}
	if _, ok := r.Lookup("unknown"); ok {
		t.Error("Lookup found a site that was never registered")
	}
}

func TestRegistryForURL(t *testing.T) {
	r := NewRegistry(&stubAdapter{site: "Daraz"}, &stubAdapter{site: "SastoDeal"})

	a, ok := r.ForURL("https://www.daraz.com.np/products/x.html")
	if !ok || a.Site() != "Daraz" {
		t.Errorf("ForURL routed to %v, %v; want Daraz", a, ok)
	}
	if _, ok := r.ForURL("https://www.example.com/"); ok {
		t.Error("ForURL matched an unrelated URL")
	}
}

func TestRegistryReplacementKeepsPosition(t *testing.T) {
	first := &stubAdapter{site: "Daraz"}
	r := NewRegistry(first, &stubAdapter{site: "SastoDeal"})

	replacement := &stubAdapter{site: "daraz"}
	r.Register(replacement)

	adapters := r.Adapters()
	if len(adapters) != 2 {
		t.Fatalf("re-registering a site grew the queue: %d adapters", len(adapters))
	}
	if a, _ := r.Lookup("Daraz"); a != replacement {
		t.Error("Lookup should return the replacement adapter")
	}
}
