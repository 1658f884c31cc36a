package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"price-tracker-go/pkg/models"
)

// DefaultHistoryLimit bounds how many price rows are scanned
const DefaultHistoryLimit = 1000

// HistoryReader lists products and price history
type HistoryReader interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error)
}

// HistoryLister builds the "latest price per product" listing
type HistoryLister struct {
	reader HistoryReader
}

// NewHistoryLister creates a history lister
func NewHistoryLister(reader HistoryReader) *HistoryLister {
	return &HistoryLister{reader: reader}
}

// Build fetches products and price rows concurrently, keeps the latest row
// per product and returns them newest first. Rows for unknown products are
// dropped.
func (l *HistoryLister) Build(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var products []models.Product
	var rows []models.PriceHistoryEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = l.reader.ListProducts(gctx, models.ProductFilter{})
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rows, err = l.reader.ListPriceHistory(gctx, models.PriceHistoryFilter{Limit: limit})
		if err != nil {
			return fmt.Errorf("failed to list price history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return LatestPerProduct(products, rows), nil
}

// LatestPerProduct joins each product with its most recent price row
func LatestPerProduct(products []models.Product, rows []models.PriceHistoryEntry) []models.HistoryEntry {
	byID := make(map[int]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	latest := make(map[int]models.PriceHistoryEntry)
	for _, row := range rows {
		existing, ok := latest[row.ProductID]
		if !ok || row.CapturedAt.After(existing.CapturedAt.Time) {
			latest[row.ProductID] = row
		}
	}

	entries := make([]models.HistoryEntry, 0, len(latest))
	for productID, row := range latest {
		p, ok := byID[productID]
		if !ok {
			continue
		}
		entries = append(entries, models.HistoryEntry{
			PriceID:    row.ID,
			ProductID:  productID,
			Store:      p.StoreName,
			Category:   p.CategoryName,
			Product:    p.Name,
			UPC:        p.UPC,
			SKU:        p.SKU,
			Price:      row.Price,
			Currency:   row.Currency,
			CapturedAt: row.CapturedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CapturedAt.Equal(entries[j].CapturedAt.Time) {
			return entries[i].PriceID > entries[j].PriceID
		}
		return entries[i].CapturedAt.After(entries[j].CapturedAt.Time)
	})
	return entries
}
