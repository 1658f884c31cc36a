package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"price-tracker-go/pkg/cli/format"
	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/scraper"
	"price-tracker-go/pkg/services"
	"price-tracker-go/pkg/utils"
)

const historyRows = 20

// Login starts a local session for email
func (a *App) Login(email string) error {
	s, err := a.session.Login(email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Logged in as %s\n", s.Email)
	return nil
}

// Logout ends the local session
func (a *App) Logout() error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "✓ Logged out")
	return nil
}

// ListStores prints every store
func (a *App) ListStores(ctx context.Context) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}
	stores, err := apiClient.ListStores(ctx, models.StoreFilter{})
	if err != nil {
		return fmt.Errorf("failed to fetch stores: %w", err)
	}
	fmt.Fprint(a.out, format.Stores(stores))
	return nil
}

// ListProducts prints every product with its store, category and brand
func (a *App) ListProducts(ctx context.Context) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}
	products, err := apiClient.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to fetch products: %w", err)
	}
	fmt.Fprint(a.out, format.Products(products))
	return nil
}

// History prints the most recent price rows of one product
func (a *App) History(ctx context.Context, productID int) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}
	product, err := apiClient.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	rows, err := apiClient.ListPriceHistory(ctx, models.PriceHistoryFilter{ProductID: productID, Limit: historyRows})
	if err != nil {
		return fmt.Errorf("failed to fetch price history: %w", err)
	}

	fmt.Fprintf(a.out, "%s (%s)\n\n", product.Name, product.StoreName)
	fmt.Fprint(a.out, format.PriceHistory(rows))
	return nil
}

// HistoryList prints the latest price of every product
func (a *App) HistoryList(ctx context.Context) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}
	entries, err := services.NewHistoryLister(apiClient).Build(ctx, services.DefaultHistoryLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, format.HistoryList(entries))
	return nil
}

// Send registers one observation read from a JSON file, or stdin for "-"
func (a *App) Send(ctx context.Context, path string) error {
	payload, err := a.readPayload(path)
	if err != nil {
		return err
	}
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	sender := a.newSender(apiClient, func(state services.SendState, feedback string) {
		switch state {
		case services.SendIdle, services.SendErr:
		case services.SendOK:
			fmt.Fprintf(a.out, "✓ %s\n", feedback)
		default:
			fmt.Fprintf(a.out, "⏳ %s\n", feedback)
		}
	})
	if err := sender.Send(ctx, payload); err != nil {
		return err
	}
	return nil
}

func (a *App) readPayload(path string) (models.ScrapingDataPayload, error) {
	var r io.Reader = a.in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return models.ScrapingDataPayload{}, fmt.Errorf("failed to open payload: %w", err)
		}
		defer f.Close()
		r = f
	}

	var payload models.ScrapingDataPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return models.ScrapingDataPayload{}, fmt.Errorf("failed to parse payload: %w", err)
	}
	for _, u := range []*string{&payload.StoreURL, &payload.ProductURL} {
		v, err := utils.OptionalURL(*u)
		if err != nil {
			return models.ScrapingDataPayload{}, err
		}
		*u = v
	}
	return payload, nil
}

// Scrape starts a backend scraping task and follows it to completion
func (a *App) Scrape(ctx context.Context, productID int, force bool) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	last := ""
	poller := a.newPoller(apiClient, func(s scraper.Snapshot) {
		msg := s.Message()
		if s.Task != nil && !s.Task.Terminal() && s.Err == nil {
			msg = fmt.Sprintf("[%3d%%] %s", s.Task.ProgressPercent, msg)
		}
		if msg == "" || msg == last {
			return
		}
		last = msg
		fmt.Fprintf(a.out, "⏳ %s\n", msg)
	})

	if err := poller.StartScraping(ctx, productID, a.startOptions(force)); err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}
	snap, err := poller.Wait(ctx)
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}

	if snap.Task != nil && snap.Task.FoundPrice != nil {
		fmt.Fprintf(a.out, "✓ Price found: %.2f\n", *snap.Task.FoundPrice)
	} else {
		fmt.Fprintln(a.out, "✓ Scraping completed")
	}
	return nil
}

// Price prints the latest known price of a product
func (a *App) Price(ctx context.Context, productID int) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}
	updater := services.NewPriceUpdater(apiClient, nil, a.log)
	entry, err := updater.CurrentPrice(ctx, productID)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Fprintf(a.out, "Product %d has no price history yet.\n", productID)
		return nil
	}
	fmt.Fprintf(a.out, "Current price: %s (captured %s)\n", format.Money(entry.Price, entry.Currency), format.Date(entry.CapturedAt.Time))
	return nil
}

// Refresh scrapes a new price and compares it with the previous one
func (a *App) Refresh(ctx context.Context, productID int, force bool) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}
	updater := services.NewPriceUpdater(apiClient, a.newPoller(apiClient, nil), a.log)
	change, err := updater.RefreshPrice(ctx, productID, a.startOptions(force))
	if err != nil {
		return fmt.Errorf("price refresh failed: %w", err)
	}
	fmt.Fprint(a.out, format.PriceChange(change))
	return nil
}
