package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"price-tracker-go/pkg/models"
)

func seedMemory(t *testing.T) (*MemoryStore, int, int, int) {
	t.Helper()
	ctx := context.Background()
	m := NewMemoryStore()

	storeID, err := m.CreateStore(ctx, models.StoreCreate{Name: "Walmart"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	categoryID, err := m.CreateCategory(ctx, "Bebidas")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	brandID, err := m.CreateBrand(ctx, "Coca-Cola")
	if err != nil {
		t.Fatalf("CreateBrand: %v", err)
	}
	return m, storeID, categoryID, brandID
}

func TestMemoryStoreNameFilterIsExact(t *testing.T) {
	m, _, _, _ := seedMemory(t)
	ctx := context.Background()

	got, _ := m.ListStores(ctx, models.StoreFilter{Name: "walmart"})
	if len(got) != 0 {
		t.Fatalf("name match should be case-sensitive, got %+v", got)
	}
	got, _ = m.ListStores(ctx, models.StoreFilter{Name: "Walmart"})
	if len(got) != 1 || got[0].CountryCode != "MX" {
		t.Fatalf("unexpected stores: %+v", got)
	}
}

func TestMemoryStoreDuplicateNames(t *testing.T) {
	m, _, _, _ := seedMemory(t)
	ctx := context.Background()

	if _, err := m.CreateStore(ctx, models.StoreCreate{Name: "Walmart"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate store error = %v, want ErrConflict", err)
	}
	if _, err := m.CreateCategory(ctx, "Bebidas"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate category error = %v, want ErrConflict", err)
	}
	if _, err := m.CreateBrand(ctx, "Coca-Cola"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate brand error = %v, want ErrConflict", err)
	}
}

func TestMemoryStoreUpsertMatching(t *testing.T) {
	m, storeID, categoryID, brandID := seedMemory(t)
	ctx := context.Background()
	upc := "7501055300075"
	sku := "SKU-1"

	first, created, err := m.UpsertProduct(ctx, models.ProductCreate{
		StoreID: storeID, CategoryID: categoryID, BrandID: brandID,
		Name: "Coca-Cola 600 ml", UPC: &upc,
	})
	if err != nil || !created {
		t.Fatalf("first upsert = %d, %v, %v", first, created, err)
	}

	// Same UPC with a new name updates the existing row
	renamed := "Coca-Cola Original 600 ml"
	id, created, err := m.UpsertProduct(ctx, models.ProductCreate{
		StoreID: storeID, CategoryID: categoryID, BrandID: brandID,
		Name: renamed, UPC: &upc, SKU: &sku,
	})
	if err != nil || created || id != first {
		t.Fatalf("UPC match = %d, %v, %v; want %d, false", id, created, err, first)
	}

	// SKU alone also matches
	id, created, _ = m.UpsertProduct(ctx, models.ProductCreate{
		StoreID: storeID, CategoryID: categoryID, BrandID: brandID,
		Name: "otro nombre", SKU: &sku,
	})
	if created || id != first {
		t.Fatalf("SKU match = %d, %v; want %d", id, created, first)
	}

	p, err := m.GetProduct(ctx, first)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.UPC == nil || *p.UPC != upc || p.StoreName != "Walmart" || p.BrandName != "Coca-Cola" {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestMemoryStoreRejectsUnknownReferences(t *testing.T) {
	m, storeID, categoryID, _ := seedMemory(t)
	ctx := context.Background()

	_, _, err := m.UpsertProduct(ctx, models.ProductCreate{StoreID: storeID, CategoryID: categoryID, BrandID: 999, Name: "x"})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
	if _, err := m.AddPriceHistory(ctx, models.PriceHistoryCreate{ProductID: 999, Price: 1}); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
}

func TestMemoryStorePriceHistoryNewestFirst(t *testing.T) {
	m, storeID, categoryID, brandID := seedMemory(t)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	productID, _, _ := m.UpsertProduct(ctx, models.ProductCreate{StoreID: storeID, CategoryID: categoryID, BrandID: brandID, Name: "Coca-Cola"})

	for i, price := range []float64{17, 18, 18.5} {
		clock = clock.Add(time.Duration(i+1) * time.Minute)
		if _, err := m.AddPriceHistory(ctx, models.PriceHistoryCreate{ProductID: productID, Price: price}); err != nil {
			t.Fatalf("AddPriceHistory: %v", err)
		}
	}

	entries, _ := m.ListPriceHistory(ctx, models.PriceHistoryFilter{ProductID: productID, Limit: 2})
	if len(entries) != 2 || entries[0].Price != 18.5 || entries[1].Price != 18 {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if entries[0].Currency != models.DefaultCurrency {
		t.Fatalf("currency = %q, want default", entries[0].Currency)
	}

	latest, err := m.LatestPrice(ctx, productID)
	if err != nil || latest.Price != 18.5 {
		t.Fatalf("LatestPrice = %+v, %v", latest, err)
	}
	if _, err := m.LatestPrice(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
