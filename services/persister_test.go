package services

import (
	"context"
	"errors"
	"testing"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/storage"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

// memStore is an in-memory storage.ProductStore. WithinTx stages writes on
// a copy and publishes them only when fn succeeds, mirroring the rollback
// semantics of the real store.
type memStore struct {
	rows       []models.Product
	failOnName string
}

func (m *memStore) FindByIdentity(_ context.Context, name, site string, price float64) (bool, error) {
	for _, r := range m.rows {
		if r.Name == name && r.Site == site && r.Price == price {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(_ context.Context, p models.Product) error {
	if m.failOnName != "" && p.Name == m.failOnName {
		return errors.New("simulated store failure")
	}
	m.rows = append(m.rows, p)
	return nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx storage.ProductTx) error) error {
	staged := &memStore{
		rows:       append([]models.Product(nil), m.rows...),
		failOnName: m.failOnName,
	}
	if err := fn(staged); err != nil {
		return err
	}
	m.rows = staged.rows
	return nil
}

func (m *memStore) FetchAll(_ context.Context) ([]models.Product, error) { return m.rows, nil }
func (m *memStore) Close() error                                         { return nil }

func product(name, site string, price float64) models.Product {
	return models.Product{Name: name, Site: site, Price: price, Currency: models.Currency}
}

func TestPersistDeduplicationIdempotence(t *testing.T) {
	store := &memStore{}
	p := NewPersister(store, utils.NewLogger())
	batch := []models.Product{product("Phone X", "Daraz", 50000)}

	written, err := p.Persist(context.Background(), batch)
	if err != nil {
		t.Fatalf("first persist failed: %v", err)
	}
	if written != 1 {
		t.Errorf("first persist wrote %d rows; want 1", written)
	}

	written, err = p.Persist(context.Background(), batch)
	if err != nil {
		t.Fatalf("second persist failed: %v", err)
	}
	if written != 0 {
		t.Errorf("second persist wrote %d rows; want 0", written)
	}
	if len(store.rows) != 1 {
		t.Errorf("store holds %d rows; want 1", len(store.rows))
	}
}

func TestPersistSameNameDifferentKeyIsNewRow(t *testing.T) {
	store := &memStore{}
	p := NewPersister(store, utils.NewLogger())

	batch := []models.Product{
		product("Phone X", "Daraz", 50000),
		product("Phone X", "SastoDeal", 50000),
		product("Phone X", "Daraz", 48000),
	}

	written, err := p.Persist(context.Background(), batch)
	if err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if written != 3 {
		t.Errorf("wrote %d rows; want 3 (site and price are part of the key)", written)
	}
}

func TestPersistDuplicateIsNoOpNotUpdate(t *testing.T) {
	store := &memStore{}
	p := NewPersister(store, utils.NewLogger())

	first := product("Phone X", "Daraz", 50000)
	first.Brand = "Samsung"
	if _, err := p.Persist(context.Background(), []models.Product{first}); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	updated := product("Phone X", "Daraz", 50000)
	updated.Brand = "Changed"
	if _, err := p.Persist(context.Background(), []models.Product{updated}); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	if store.rows[0].Brand != "Samsung" {
		t.Errorf("duplicate refreshed stored metadata: brand = %q", store.rows[0].Brand)
	}
}

func TestPersistBatchAbortsWithoutPartialWrites(t *testing.T) {
	store := &memStore{failOnName: "Bad"}
	p := NewPersister(store, utils.NewLogger())

	batch := []models.Product{
		product("Good", "Daraz", 1000),
		product("Bad", "Daraz", 2000),
		product("Later", "Daraz", 3000),
	}

	written, err := p.Persist(context.Background(), batch)
	if err == nil {
		t.Fatal("expected batch error")
	}
	if written != 0 {
		t.Errorf("failed batch reported %d written rows; want 0", written)
	}
	if len(store.rows) != 0 {
		t.Errorf("failed batch left %d rows behind; want 0", len(store.rows))
	}

	// An earlier committed batch is unaffected by a later failure.
	store = &memStore{}
	p = NewPersister(store, utils.NewLogger())
	if _, err := p.Persist(context.Background(), []models.Product{product("Kept", "Daraz", 500)}); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	store.failOnName = "Bad"
	if _, err := p.Persist(context.Background(), []models.Product{product("Bad", "Daraz", 600)}); err == nil {
		t.Fatal("expected batch error")
	}
	if len(store.rows) != 1 || store.rows[0].Name != "Kept" {
		t.Errorf("earlier batch disturbed: %+v", store.rows)
	}
}

func TestPersistEmptyBatch(t *testing.T) {
	p := NewPersister(&memStore{}, utils.NewLogger())
	written, err := p.Persist(context.Background(), nil)
	if err != nil || written != 0 {
		t.Errorf("empty batch: got (%d, %v); want (0, nil)", written, err)
	}
}
