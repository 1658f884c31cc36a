package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"price-tracker-go/pkg/models"
)

// fakeCatalog records every call the sender makes
type fakeCatalog struct {
	mu         sync.Mutex
	stores     []models.Store
	categories []models.Category
	brands     []models.Brand
	products   []models.ProductCreate
	history    []models.PriceHistoryCreate
	calls      []string
	nextID     int

	failOn map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{nextID: 100, failOn: map[string]error{}}
}

func (f *fakeCatalog) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeCatalog) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeCatalog) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeCatalog) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListStores"); err != nil {
		return nil, err
	}
	var out []models.Store
	for _, s := range f.stores {
		if s.Name == filter.Name {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateStore(ctx context.Context, store models.StoreCreate) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateStore"); err != nil {
		return nil, err
	}
	id := f.id()
	f.stores = append(f.stores, models.Store{ID: id, Name: store.Name, BaseURL: store.BaseURL, CountryCode: store.CountryCode})
	return &models.Created{ID: id}, nil
}

func (f *fakeCatalog) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCategories"); err != nil {
		return nil, err
	}
	var out []models.Category
	for _, c := range f.categories {
		if c.Name == filter.Name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, name string) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCategory"); err != nil {
		return nil, err
	}
	id := f.id()
	f.categories = append(f.categories, models.Category{ID: id, Name: name})
	return &models.Created{ID: id}, nil
}

func (f *fakeCatalog) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListBrands"); err != nil {
		return nil, err
	}
	var out []models.Brand
	for _, b := range f.brands {
		if b.Name == filter.Name {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateBrand(ctx context.Context, name string) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateBrand"); err != nil {
		return nil, err
	}
	id := f.id()
	f.brands = append(f.brands, models.Brand{ID: id, Name: name})
	return &models.Created{ID: id}, nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, product models.ProductCreate) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateProduct"); err != nil {
		return nil, err
	}
	f.products = append(f.products, product)
	return &models.Created{ID: 500 + len(f.products)}, nil
}

func (f *fakeCatalog) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddPriceHistory"); err != nil {
		return nil, err
	}
	f.history = append(f.history, entry)
	return &models.Created{ID: 900 + len(f.history)}, nil
}

// memoryStore is an in-memory CatalogStore and TaskStore
type memoryStore struct {
	mu         sync.Mutex
	stores     []models.Store
	categories []models.Category
	brands     []models.Brand
	products   []models.Product
	history    []models.PriceHistoryEntry
	nextID     int
}

var errMemoryNotFound = errors.New("not found")

func (m *memoryStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Store{}
	for _, s := range m.stores {
		if filter.Name != "" && s.Name != filter.Name {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryStore) CreateStore(ctx context.Context, store models.StoreCreate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.stores = append(m.stores, models.Store{ID: id, Name: store.Name, BaseURL: store.BaseURL, CountryCode: store.CountryCode})
	return id, nil
}

func (m *memoryStore) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Category{}
	for _, c := range m.categories {
		if filter.Name == "" || c.Name == filter.Name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateCategory(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.categories = append(m.categories, models.Category{ID: id, Name: name})
	return id, nil
}

func (m *memoryStore) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Brand{}
	for _, b := range m.brands {
		if filter.Name == "" || b.Name == filter.Name {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateBrand(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.brands = append(m.brands, models.Brand{ID: id, Name: name})
	return id, nil
}

func (m *memoryStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.products {
		if filter.ID > 0 && p.ID != filter.ID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryStore) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, errMemoryNotFound
}

func (m *memoryStore) UpsertProduct(ctx context.Context, product models.ProductCreate) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.StoreID == product.StoreID && p.Name == product.Name {
			m.products[i].CategoryID = product.CategoryID
			return p.ID, false, nil
		}
	}
	id := m.id()
	m.products = append(m.products, models.Product{
		ID:         id,
		StoreID:    product.StoreID,
		CategoryID: product.CategoryID,
		BrandID:    product.BrandID,
		Name:       product.Name,
		URL:        product.URL,
	})
	return id, true, nil
}

func (m *memoryStore) ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PriceHistoryEntry{}
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		if filter.ProductID > 0 && e.ProductID != filter.ProductID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.history = append(m.history, models.PriceHistoryEntry{
		ID:         id,
		ProductID:  entry.ProductID,
		Price:      entry.Price,
		Currency:   entry.Currency,
		PromoLabel: entry.PromoLabel,
		CapturedAt: models.NewTimestamp(time.Now()),
	})
	return id, nil
}

func (m *memoryStore) LatestPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error) {
	rows, _ := m.ListPriceHistory(ctx, models.PriceHistoryFilter{ProductID: productID, Limit: 1})
	if len(rows) == 0 {
		return nil, fmt.Errorf("product %d: %w", productID, errMemoryNotFound)
	}
	return &rows[0], nil
}
