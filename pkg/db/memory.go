package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"price-tracker-go/pkg/models"
)

// MemoryStore keeps the catalog in process memory. It follows the same
// matching and error rules as DB and is used for local runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	stores     []models.Store
	categories []models.Category
	brands     []models.Brand
	products   []models.Product
	history    []models.PriceHistoryEntry
	nextID     int
	now        func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) id() int {
	m.nextID++
	return m.nextID
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stores := []models.Store{}
	for _, s := range m.stores {
		if filter.Name != "" && s.Name != filter.Name {
			continue
		}
		if filter.ID > 0 && s.ID != filter.ID {
			continue
		}
		if filter.CountryCode != "" && s.CountryCode != filter.CountryCode {
			continue
		}
		stores = append(stores, s)
	}
	return stores, nil
}

func (m *MemoryStore) CreateStore(ctx context.Context, store models.StoreCreate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stores {
		if s.Name == store.Name {
			return 0, fmt.Errorf("failed to create store: %w", ErrConflict)
		}
	}
	country := store.CountryCode
	if country == "" {
		country = "MX"
	}
	id := m.id()
	m.stores = append(m.stores, models.Store{ID: id, Name: store.Name, BaseURL: store.BaseURL, CountryCode: country})
	return id, nil
}

func (m *MemoryStore) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	categories := []models.Category{}
	for _, c := range m.categories {
		if filter.Name == "" || c.Name == filter.Name {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.Name == name {
			return 0, fmt.Errorf("failed to create category: %w", ErrConflict)
		}
	}
	id := m.id()
	m.categories = append(m.categories, models.Category{ID: id, Name: name})
	return id, nil
}

func (m *MemoryStore) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	brands := []models.Brand{}
	for _, b := range m.brands {
		if filter.Name == "" || b.Name == filter.Name {
			brands = append(brands, b)
		}
	}
	return brands, nil
}

func (m *MemoryStore) CreateBrand(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.brands {
		if b.Name == name {
			return 0, fmt.Errorf("failed to create brand: %w", ErrConflict)
		}
	}
	id := m.id()
	m.brands = append(m.brands, models.Brand{ID: id, Name: name})
	return id, nil
}

// joined fills in the store, category and brand names. Caller holds the lock.
func (m *MemoryStore) joined(p models.Product) models.Product {
	for _, s := range m.stores {
		if s.ID == p.StoreID {
			p.StoreName = s.Name
		}
	}
	for _, c := range m.categories {
		if c.ID == p.CategoryID {
			p.CategoryName = c.Name
		}
	}
	for _, b := range m.brands {
		if b.ID == p.BrandID {
			p.BrandName = b.Name
		}
	}
	return p
}

func (m *MemoryStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := []models.Product{}
	for _, p := range m.products {
		if filter.ID > 0 && p.ID != filter.ID {
			continue
		}
		if filter.StoreID > 0 && p.StoreID != filter.StoreID {
			continue
		}
		if filter.Name != "" && p.Name != filter.Name {
			continue
		}
		products = append(products, m.joined(p))
	}
	return products, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.products {
		if p.ID == id {
			joined := m.joined(p)
			return &joined, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) exists(storeID, categoryID, brandID int) bool {
	found := 0
	for _, s := range m.stores {
		if s.ID == storeID {
			found++
			break
		}
	}
	for _, c := range m.categories {
		if c.ID == categoryID {
			found++
			break
		}
	}
	for _, b := range m.brands {
		if b.ID == brandID {
			found++
			break
		}
	}
	return found == 3
}

// UpsertProduct matches by UPC, then SKU, then name within the store
func (m *MemoryStore) UpsertProduct(ctx context.Context, product models.ProductCreate) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists(product.StoreID, product.CategoryID, product.BrandID) {
		return 0, false, fmt.Errorf("failed to create product: %w", ErrInvalidReference)
	}

	idx := m.match(product)
	if idx < 0 {
		id := m.id()
		m.products = append(m.products, models.Product{
			ID:         id,
			StoreID:    product.StoreID,
			CategoryID: product.CategoryID,
			BrandID:    product.BrandID,
			Name:       product.Name,
			Flavor:     product.Flavor,
			VolumeML:   product.VolumeML,
			UPC:        product.UPC,
			SKU:        product.SKU,
			URL:        product.URL,
			CreatedAt:  models.NewTimestamp(m.now()),
		})
		return id, true, nil
	}

	p := &m.products[idx]
	p.CategoryID = product.CategoryID
	p.BrandID = product.BrandID
	p.Name = product.Name
	if product.Flavor != nil {
		p.Flavor = product.Flavor
	}
	if product.VolumeML != nil {
		p.VolumeML = product.VolumeML
	}
	if product.UPC != nil {
		p.UPC = product.UPC
	}
	if product.SKU != nil {
		p.SKU = product.SKU
	}
	if product.URL != nil {
		p.URL = product.URL
	}
	return p.ID, false, nil
}

func (m *MemoryStore) match(product models.ProductCreate) int {
	same := func(a, b *string) bool {
		return a != nil && b != nil && *a != "" && *a == *b
	}
	for _, byKey := range []func(p models.Product) bool{
		func(p models.Product) bool { return same(product.UPC, p.UPC) },
		func(p models.Product) bool { return same(product.SKU, p.SKU) },
		func(p models.Product) bool { return p.Name == product.Name },
	} {
		for i, p := range m.products {
			if p.StoreID == product.StoreID && byKey(p) {
				return i
			}
		}
	}
	return -1
}

func (m *MemoryStore) ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []models.PriceHistoryEntry{}
	for _, e := range m.history {
		if filter.ProductID > 0 && e.ProductID != filter.ProductID {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CapturedAt.Equal(entries[j].CapturedAt.Time) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CapturedAt.After(entries[j].CapturedAt.Time)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MemoryStore) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	known := false
	for _, p := range m.products {
		if p.ID == entry.ProductID {
			known = true
			break
		}
	}
	if !known {
		return 0, fmt.Errorf("failed to add price: %w", ErrInvalidReference)
	}

	currency := entry.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	id := m.id()
	m.history = append(m.history, models.PriceHistoryEntry{
		ID:         id,
		ProductID:  entry.ProductID,
		Price:      entry.Price,
		Currency:   currency,
		PromoLabel: entry.PromoLabel,
		CapturedAt: models.NewTimestamp(m.now()),
	})
	return id, nil
}

func (m *MemoryStore) LatestPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error) {
	entries, err := m.ListPriceHistory(ctx, models.PriceHistoryFilter{ProductID: productID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}
