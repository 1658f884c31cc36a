package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"price-tracker-go/pkg/models"
)

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// ListStores retrieves stores, optionally filtered by exact name, ID or country
func (c *Client) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	q := url.Values{}
	if filter.Name != "" {
		q.Set("nombre", filter.Name)
	}
	if filter.ID > 0 {
		q.Set("id_tienda", strconv.Itoa(filter.ID))
	}
	if filter.CountryCode != "" {
		q.Set("codigo_pais", filter.CountryCode)
	}

	var stores []models.Store
	if err := c.doGetRequest(ctx, withQuery("/tiendas", q), &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// CreateStore creates a new store
func (c *Client) CreateStore(ctx context.Context, store models.StoreCreate) (*models.Created, error) {
	var created models.Created
	if err := c.doJSONRequest(ctx, http.MethodPost, "/tiendas", store, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListCategories retrieves categories, optionally filtered by exact name
func (c *Client) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	q := url.Values{}
	if filter.Name != "" {
		q.Set("nombre", filter.Name)
	}

	var categories []models.Category
	if err := c.doGetRequest(ctx, withQuery("/categorias", q), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory creates a new category
func (c *Client) CreateCategory(ctx context.Context, name string) (*models.Created, error) {
	var created models.Created
	payload := models.NameCreate{Name: name}
	if err := c.doJSONRequest(ctx, http.MethodPost, "/categorias", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListBrands retrieves brands, optionally filtered by exact name
func (c *Client) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	q := url.Values{}
	if filter.Name != "" {
		q.Set("nombre", filter.Name)
	}

	var brands []models.Brand
	if err := c.doGetRequest(ctx, withQuery("/marcas", q), &brands); err != nil {
		return nil, err
	}
	return brands, nil
}

// CreateBrand creates a new brand
func (c *Client) CreateBrand(ctx context.Context, name string) (*models.Created, error) {
	var created models.Created
	payload := models.NameCreate{Name: name}
	if err := c.doJSONRequest(ctx, http.MethodPost, "/marcas", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListProducts retrieves products with their joined store/category/brand names
func (c *Client) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	q := url.Values{}
	if filter.ID > 0 {
		q.Set("id_producto", strconv.Itoa(filter.ID))
	}
	if filter.StoreID > 0 {
		q.Set("id_tienda", strconv.Itoa(filter.StoreID))
	}
	if filter.Name != "" {
		q.Set("nombre", filter.Name)
	}

	var products []models.Product
	if err := c.doGetRequest(ctx, withQuery("/productos", q), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct retrieves a single product by ID
func (c *Client) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	products, err := c.ListProducts(ctx, models.ProductFilter{ID: id})
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("product %d not found", id)
}

// CreateProduct creates a product. The backend decides whether an existing
// product is updated instead.
func (c *Client) CreateProduct(ctx context.Context, product models.ProductCreate) (*models.Created, error) {
	var created models.Created
	if err := c.doJSONRequest(ctx, http.MethodPost, "/productos", product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListPriceHistory retrieves price rows, newest first
func (c *Client) ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error) {
	q := url.Values{}
	if filter.ProductID > 0 {
		q.Set("id_producto", strconv.Itoa(filter.ProductID))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := withQuery("/historial-precios", q)
	var entries []models.PriceHistoryEntry
	if err := c.doGetRequest(ctx, path, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, &DecodeError{Endpoint: "GET /historial-precios", Err: err}
		}
	}
	return entries, nil
}

// AddPriceHistory appends a price row. There is no idempotency key: two
// identical calls create two rows.
func (c *Client) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (*models.Created, error) {
	var created models.Created
	if err := c.doJSONRequest(ctx, http.MethodPost, "/historial-precios", entry, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CurrentPrice retrieves the latest captured price for a product
func (c *Client) CurrentPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error) {
	var entry models.PriceHistoryEntry
	path := fmt.Sprintf("/productos/%d/precio-actual", productID)
	if err := c.doGetRequest(ctx, path, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
