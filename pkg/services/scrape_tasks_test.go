package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"price-tracker-go/pkg/models"
)

type fakeFetcher struct {
	price decimal.Decimal
	err   error
	urls  chan string
}

func (f *fakeFetcher) FetchPrice(ctx context.Context, url string) (decimal.Decimal, error) {
	if f.urls != nil {
		f.urls <- url
	}
	return f.price, f.err
}

func seededStore(url *string) *memoryStore {
	store := &memoryStore{nextID: 10}
	store.products = []models.Product{{ID: 1, Name: "Coca-Cola", URL: url}}
	return store
}

func strPtr(s string) *string { return &s }

func newManager(t *testing.T, store TaskStore, fetcher PriceFetcher, cfg ScrapeTaskConfig) *ScrapeTaskManager {
	t.Helper()
	m, err := NewScrapeTaskManager(store, fetcher, cfg)
	if err != nil {
		t.Fatalf("NewScrapeTaskManager: %v", err)
	}
	return m
}

func TestScrapeTaskCompletes(t *testing.T) {
	store := seededStore(strPtr("https://example.com/coca"))
	fetcher := &fakeFetcher{price: decimal.RequireFromString("18.50")}
	m := newManager(t, store, fetcher, ScrapeTaskConfig{})

	resp, err := m.Start(context.Background(), 1, models.ScrapeStartRequest{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resp.TaskID == "" || resp.Status.Terminal() {
		t.Fatalf("unexpected start response: %+v", resp)
	}

	m.Wait()

	status, err := m.Status(resp.TaskID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != models.TaskCompleted {
		t.Fatalf("status = %s, want %s", status.Status, models.TaskCompleted)
	}
	if status.FoundPrice == nil || *status.FoundPrice != 18.5 {
		t.Fatalf("found price = %v, want 18.5", status.FoundPrice)
	}
	if status.ProgressPercent == nil || *status.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", status.ProgressPercent)
	}
	if len(store.history) != 1 || store.history[0].Price != 18.5 {
		t.Fatalf("price should be appended to history: %+v", store.history)
	}
}

func TestScrapeTaskFetchError(t *testing.T) {
	store := seededStore(strPtr("https://example.com/coca"))
	fetcher := &fakeFetcher{err: errors.New("status 404")}
	m := newManager(t, store, fetcher, ScrapeTaskConfig{})

	resp, err := m.Start(context.Background(), 1, models.ScrapeStartRequest{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Wait()

	status, _ := m.Status(resp.TaskID)
	if status.Status != models.TaskError || !strings.Contains(status.Message, "status 404") {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(store.history) != 0 {
		t.Fatalf("no history expected on failure")
	}
}

func TestScrapeTaskWithoutURLFailsImmediately(t *testing.T) {
	m := newManager(t, seededStore(nil), &fakeFetcher{}, ScrapeTaskConfig{})

	resp, err := m.Start(context.Background(), 1, models.ScrapeStartRequest{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resp.Status != models.TaskError {
		t.Fatalf("status = %s, want %s", resp.Status, models.TaskError)
	}
}

func TestScrapeTaskFreshPriceShortCircuits(t *testing.T) {
	store := seededStore(strPtr("https://example.com/coca"))
	if _, err := store.AddPriceHistory(context.Background(), models.PriceHistoryCreate{ProductID: 1, Price: 17}); err != nil {
		t.Fatalf("seed price: %v", err)
	}
	fetcher := &fakeFetcher{price: decimal.NewFromInt(99), urls: make(chan string, 1)}
	m := newManager(t, store, fetcher, ScrapeTaskConfig{FreshFor: time.Hour})

	resp, err := m.Start(context.Background(), 1, models.ScrapeStartRequest{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resp.Status != models.TaskCompleted {
		t.Fatalf("fresh price should complete immediately, got %s", resp.Status)
	}
	status, _ := m.Status(resp.TaskID)
	if status.FoundPrice == nil || *status.FoundPrice != 17 {
		t.Fatalf("found price = %v, want cached 17", status.FoundPrice)
	}

	force := true
	resp, err = m.Start(context.Background(), 1, models.ScrapeStartRequest{ForceRefresh: &force})
	if err != nil {
		t.Fatalf("forced Start: %v", err)
	}
	m.Wait()
	if got := <-fetcher.urls; got != "https://example.com/coca" {
		t.Fatalf("fetched %q", got)
	}
	status, _ = m.Status(resp.TaskID)
	if status.FoundPrice == nil || *status.FoundPrice != 99 {
		t.Fatalf("forced refresh should scrape, got %v", status.FoundPrice)
	}
}

func TestScrapeTaskUnknownProduct(t *testing.T) {
	m := newManager(t, seededStore(nil), &fakeFetcher{}, ScrapeTaskConfig{})

	if _, err := m.Start(context.Background(), 42, models.ScrapeStartRequest{}); err == nil {
		t.Fatalf("expected error for unknown product")
	}
}

func TestScrapeTaskEviction(t *testing.T) {
	m := newManager(t, seededStore(nil), &fakeFetcher{}, ScrapeTaskConfig{CacheSize: 1})

	first, _ := m.Start(context.Background(), 1, models.ScrapeStartRequest{})
	if _, err := m.Start(context.Background(), 1, models.ScrapeStartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := m.Status(first.TaskID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("evicted task error = %v, want ErrTaskNotFound", err)
	}
	if _, err := m.Status("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("unknown task error = %v, want ErrTaskNotFound", err)
	}
}
