package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/scraper"
)

// ErrNoPrice is returned when a refresh finishes without any price.
var ErrNoPrice = errors.New("no price found for product")

// PriceReader reads price history rows, newest first.
type PriceReader interface {
	ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error)
}

// ScrapeRunner runs one scraping task to completion.
type ScrapeRunner interface {
	StartScraping(ctx context.Context, productID int, opts scraper.StartOptions) error
	Wait(ctx context.Context) (scraper.Snapshot, error)
}

// PriceChange compares a product's price before and after a refresh
type PriceChange struct {
	ProductID     int
	Previous      *models.PriceHistoryEntry
	Current       decimal.Decimal
	Difference    decimal.Decimal
	PercentChange decimal.Decimal
}

// HasPrevious reports whether a price existed before the refresh
func (c PriceChange) HasPrevious() bool {
	return c.Previous != nil
}

// PriceUpdater reads current prices and refreshes them via scraping
type PriceUpdater struct {
	prices PriceReader
	runner ScrapeRunner
	log    *zap.SugaredLogger
}

// NewPriceUpdater creates a price updater
func NewPriceUpdater(prices PriceReader, runner ScrapeRunner, log *zap.SugaredLogger) *PriceUpdater {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PriceUpdater{prices: prices, runner: runner, log: log.Named("price_updater")}
}

// CurrentPrice returns the most recent price row, or nil when the product
// has no history.
func (u *PriceUpdater) CurrentPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error) {
	rows, err := u.prices.ListPriceHistory(ctx, models.PriceHistoryFilter{ProductID: productID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to read price history: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// RefreshPrice scrapes a fresh price for productID and compares it with the
// previous one.
func (u *PriceUpdater) RefreshPrice(ctx context.Context, productID int, opts scraper.StartOptions) (*PriceChange, error) {
	previous, err := u.CurrentPrice(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := u.runner.StartScraping(ctx, productID, opts); err != nil {
		return nil, err
	}
	snap, err := u.runner.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var current decimal.Decimal
	switch {
	case snap.Task != nil && snap.Task.FoundPrice != nil:
		current = decimal.NewFromFloat(*snap.Task.FoundPrice)
	default:
		// A cached task reports no price; the latest row is the answer.
		latest, err := u.CurrentPrice(ctx, productID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, ErrNoPrice
		}
		current = decimal.NewFromFloat(latest.Price)
	}

	change := ComparePrices(previous, current)
	change.ProductID = productID
	u.log.Infow("price refreshed", "product_id", productID, "current", current.StringFixed(2), "difference", change.Difference.StringFixed(2))
	return &change, nil
}

// ComparePrices computes the difference and percent change from previous to
// current. Percent change is zero when there is no previous price or it was
// zero.
func ComparePrices(previous *models.PriceHistoryEntry, current decimal.Decimal) PriceChange {
	change := PriceChange{Previous: previous, Current: current}
	if previous == nil {
		return change
	}

	before := decimal.NewFromFloat(previous.Price)
	change.Difference = current.Sub(before)
	if !before.IsZero() {
		change.PercentChange = change.Difference.Div(before).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return change
}
