package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"price-tracker-go/pkg/models"
)

// MaxHistoryLimit caps price history listings
const MaxHistoryLimit = 1000

// CatalogStore is the persistence the catalog service needs
type CatalogStore interface {
	ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error)
	CreateStore(ctx context.Context, store models.StoreCreate) (int, error)
	ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string) (int, error)
	ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error)
	CreateBrand(ctx context.Context, name string) (int, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	UpsertProduct(ctx context.Context, product models.ProductCreate) (int, bool, error)
	ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error)
	AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (int, error)
	LatestPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error)
}

// CatalogService handles business logic for the catalog endpoints
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

func requireName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Message: fmt.Sprintf("%s name is required", kind)}
	}
	return name, nil
}

// ListStores retrieves stores matching the filter
func (s *CatalogService) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	return s.store.ListStores(ctx, filter)
}

// CreateStore creates a store
func (s *CatalogService) CreateStore(ctx context.Context, store models.StoreCreate) (int, error) {
	name, err := requireName(EntityStore, store.Name)
	if err != nil {
		return 0, err
	}
	store.Name = name
	if store.CountryCode == "" {
		store.CountryCode = DefaultCountryCode
	}
	return s.store.CreateStore(ctx, store)
}

// ListCategories retrieves categories
func (s *CatalogService) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	return s.store.ListCategories(ctx, filter)
}

// CreateCategory creates a category
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (int, error) {
	name, err := requireName(EntityCategory, name)
	if err != nil {
		return 0, err
	}
	return s.store.CreateCategory(ctx, name)
}

// ListBrands retrieves brands
func (s *CatalogService) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	return s.store.ListBrands(ctx, filter)
}

// CreateBrand creates a brand
func (s *CatalogService) CreateBrand(ctx context.Context, name string) (int, error) {
	name, err := requireName(EntityBrand, name)
	if err != nil {
		return 0, err
	}
	return s.store.CreateBrand(ctx, name)
}

// ListProducts retrieves products
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return s.store.ListProducts(ctx, filter)
}

// GetProduct retrieves a single product
func (s *CatalogService) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// CreateProduct creates or updates a product. The store matches existing
// products by UPC, SKU or name within the same store.
func (s *CatalogService) CreateProduct(ctx context.Context, product models.ProductCreate) (int, bool, error) {
	if product.StoreID <= 0 || product.CategoryID <= 0 || product.BrandID <= 0 {
		return 0, false, &ValidationError{Message: "id_tienda, id_categoria and id_marca are required"}
	}
	name, err := requireName("product", product.Name)
	if err != nil {
		return 0, false, err
	}
	product.Name = name
	if product.VolumeML != nil && *product.VolumeML < 0 {
		return 0, false, &ValidationError{Message: "volumen_ml cannot be negative"}
	}
	return s.store.UpsertProduct(ctx, product)
}

// ListPriceHistory retrieves price rows newest first
func (s *CatalogService) ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error) {
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	return s.store.ListPriceHistory(ctx, filter)
}

// AddPriceHistory appends a price row
func (s *CatalogService) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (int, error) {
	if entry.ProductID <= 0 {
		return 0, &ValidationError{Message: "id_producto is required"}
	}
	if entry.Price < 0 || math.IsNaN(entry.Price) || math.IsInf(entry.Price, 0) {
		return 0, &ValidationError{Message: "precio must be a non-negative number"}
	}
	if entry.Currency == "" {
		entry.Currency = models.DefaultCurrency
	}
	return s.store.AddPriceHistory(ctx, entry)
}

// CurrentPrice returns the newest price row for a product
func (s *CatalogService) CurrentPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error) {
	return s.store.LatestPrice(ctx, productID)
}
