package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"price-tracker-go/pkg/models"

	"github.com/jackc/pgx/v5"
)

// DefaultHistoryLimit applies when a price history query has no limit
const DefaultHistoryLimit = 100

// where accumulates "column = $n" conditions
type where struct {
	conds []string
	args  []any
}

func (w *where) add(column string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// ListStores lists stores matching the filter. Name matching is exact.
func (db *DB) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	var w where
	if filter.Name != "" {
		w.add("nombre", filter.Name)
	}
	if filter.ID > 0 {
		w.add("id_tienda", filter.ID)
	}
	if filter.CountryCode != "" {
		w.add("codigo_pais", filter.CountryCode)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id_tienda, nombre, url_base, codigo_pais FROM tienda`+w.String()+` ORDER BY id_tienda`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	stores := []models.Store{}
	for rows.Next() {
		var s models.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.BaseURL, &s.CountryCode); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, s)
	}

	return stores, rows.Err()
}

// CreateStore inserts a store and returns its ID
func (db *DB) CreateStore(ctx context.Context, store models.StoreCreate) (int, error) {
	country := store.CountryCode
	if country == "" {
		country = "MX"
	}

	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO tienda (nombre, url_base, codigo_pais)
		 VALUES ($1, $2, $3)
		 RETURNING id_tienda`,
		store.Name, store.BaseURL, country,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "failed to create store")
	}

	return id, nil
}

// ListCategories lists categories, optionally by exact name
func (db *DB) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	var w where
	if filter.Name != "" {
		w.add("nombre", filter.Name)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id_categoria, nombre FROM categoria`+w.String()+` ORDER BY id_categoria`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// CreateCategory inserts a category and returns its ID
func (db *DB) CreateCategory(ctx context.Context, name string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO categoria (nombre) VALUES ($1) RETURNING id_categoria`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "failed to create category")
	}
	return id, nil
}

// ListBrands lists brands, optionally by exact name
func (db *DB) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	var w where
	if filter.Name != "" {
		w.add("nombre", filter.Name)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id_marca, nombre FROM marca`+w.String()+` ORDER BY id_marca`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	brands := []models.Brand{}
	for rows.Next() {
		var b models.Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}

	return brands, rows.Err()
}

// CreateBrand inserts a brand and returns its ID
func (db *DB) CreateBrand(ctx context.Context, name string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO marca (nombre) VALUES ($1) RETURNING id_marca`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "failed to create brand")
	}
	return id, nil
}

const productColumns = `
	p.id_producto, p.id_tienda, p.id_categoria, p.id_marca, p.nombre,
	p.sabor, p.volumen_ml, p.upc, p.sku, p.url_producto, p.creado_en,
	t.nombre, c.nombre, m.nombre`

const productJoins = `
	FROM producto p
	JOIN tienda t ON t.id_tienda = p.id_tienda
	JOIN categoria c ON c.id_categoria = p.id_categoria
	JOIN marca m ON m.id_marca = p.id_marca`

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.CategoryID,
		&p.BrandID,
		&p.Name,
		&p.Flavor,
		&p.VolumeML,
		&p.UPC,
		&p.SKU,
		&p.URL,
		&p.CreatedAt.Time,
		&p.StoreName,
		&p.CategoryName,
		&p.BrandName,
	)
	return p, err
}

// ListProducts lists products with their store, category and brand names
func (db *DB) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	var w where
	if filter.ID > 0 {
		w.add("p.id_producto", filter.ID)
	}
	if filter.StoreID > 0 {
		w.add("p.id_tienda", filter.StoreID)
	}
	if filter.Name != "" {
		w.add("p.nombre", filter.Name)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT`+productColumns+productJoins+w.String()+` ORDER BY p.id_producto`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetProduct retrieves a single product by ID
func (db *DB) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, err := scanProduct(db.Pool.QueryRow(ctx,
		`SELECT`+productColumns+productJoins+` WHERE p.id_producto = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// UpsertProduct creates a product or updates the one it matches. Matching
// is scoped to the store and tries UPC, then SKU, then name.
func (db *DB) UpsertProduct(ctx context.Context, product models.ProductCreate) (id int, created bool, err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err = matchProduct(ctx, tx, product)
	if err != nil {
		return 0, false, err
	}

	if id == 0 {
		err = tx.QueryRow(ctx,
			`INSERT INTO producto
			 (id_tienda, id_categoria, id_marca, nombre, sabor, volumen_ml, upc, sku, url_producto)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id_producto`,
			product.StoreID, product.CategoryID, product.BrandID, product.Name,
			product.Flavor, product.VolumeML, product.UPC, product.SKU, product.URL,
		).Scan(&id)
		if err != nil {
			return 0, false, classify(err, "failed to create product")
		}
		created = true
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE producto SET
			   id_categoria = $2,
			   id_marca = $3,
			   nombre = $4,
			   sabor = COALESCE($5, sabor),
			   volumen_ml = COALESCE($6, volumen_ml),
			   upc = COALESCE($7, upc),
			   sku = COALESCE($8, sku),
			   url_producto = COALESCE($9, url_producto)
			 WHERE id_producto = $1`,
			id, product.CategoryID, product.BrandID, product.Name,
			product.Flavor, product.VolumeML, product.UPC, product.SKU, product.URL,
		)
		if err != nil {
			return 0, false, classify(err, "failed to update product")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("failed to commit product: %w", err)
	}
	return id, created, nil
}

func matchProduct(ctx context.Context, tx pgx.Tx, product models.ProductCreate) (int, error) {
	type key struct {
		column string
		value  *string
	}
	name := product.Name
	keys := []key{{"upc", product.UPC}, {"sku", product.SKU}, {"nombre", &name}}

	for _, k := range keys {
		if k.value == nil || *k.value == "" {
			continue
		}
		var id int
		err := tx.QueryRow(ctx,
			`SELECT id_producto FROM producto
			 WHERE id_tienda = $1 AND `+k.column+` = $2
			 ORDER BY id_producto LIMIT 1`,
			product.StoreID, *k.value,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to match product by %s: %w", k.column, err)
		}
		return id, nil
	}
	return 0, nil
}

// ListPriceHistory lists price rows newest first
func (db *DB) ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error) {
	var w where
	if filter.ProductID > 0 {
		w.add("id_producto", filter.ProductID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	w.args = append(w.args, limit)

	rows, err := db.Pool.Query(ctx,
		`SELECT id_precio, id_producto, precio, moneda, etiqueta_promo, capturado_en
		 FROM historial_precio`+w.String()+
			fmt.Sprintf(` ORDER BY capturado_en DESC, id_precio DESC LIMIT $%d`, len(w.args)),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	entries := []models.PriceHistoryEntry{}
	for rows.Next() {
		var e models.PriceHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Price, &e.Currency, &e.PromoLabel, &e.CapturedAt.Time); err != nil {
			return nil, fmt.Errorf("failed to scan price entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AddPriceHistory appends a price row and returns its ID
func (db *DB) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (int, error) {
	currency := entry.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO historial_precio (id_producto, precio, moneda, etiqueta_promo)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id_precio`,
		entry.ProductID, entry.Price, currency, entry.PromoLabel,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "failed to add price")
	}

	return id, nil
}

// LatestPrice returns the newest price row for a product
func (db *DB) LatestPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error) {
	entries, err := db.ListPriceHistory(ctx, models.PriceHistoryFilter{ProductID: productID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}
