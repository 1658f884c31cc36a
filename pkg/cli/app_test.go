package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"price-tracker-go/pkg/api"
	"price-tracker-go/pkg/config"
	"price-tracker-go/pkg/db"
	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"
	"price-tracker-go/pkg/session"
)

type staticFetcher struct {
	price decimal.Decimal
}

func (f staticFetcher) FetchPrice(ctx context.Context, url string) (decimal.Decimal, error) {
	return f.price, nil
}

const payloadJSON = `{
  "comercio": "Walmart",
  "producto": "Coca-Cola Sin Azúcar",
  "variante": "600 ml",
  "marca": "Coca-Cola",
  "categoria": "Bebidas",
  "precio": 18.5,
  "urlProducto": "https://www.walmart.com.mx/coca-cola-600"
}`

func newTestApp(t *testing.T) (*App, *bytes.Buffer, *db.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("HOME", t.TempDir())

	store := db.NewMemoryStore()
	tasks, err := services.NewScrapeTaskManager(store, staticFetcher{price: decimal.RequireFromString("42")}, services.ScrapeTaskConfig{})
	if err != nil {
		t.Fatalf("NewScrapeTaskManager: %v", err)
	}
	srv := httptest.NewServer(api.NewRouter(api.Dependencies{
		Catalog: services.NewCatalogService(store),
		Tasks:   tasks,
		Ping:    store.Ping,
	}))
	t.Cleanup(func() {
		tasks.Wait()
		srv.Close()
	})

	cfg := config.DefaultConfig()
	cfg.CLI.BaseURL = srv.URL + "/api"
	cfg.CLI.PollIntervalMS = 5

	sess := session.NewManager(filepath.Join(t.TempDir(), "session.toml"))
	app := NewApp(cfg, sess, metrics.New(), nil)
	out := &bytes.Buffer{}
	app.out = out
	return app, out, store
}

func TestSendScrapeAndPrice(t *testing.T) {
	app, out, store := newTestApp(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(payloadJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := app.Send(ctx, path); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out.String(), "Coca-Cola Sin Azúcar at Walmart registered") {
		t.Fatalf("unexpected send output:\n%s", out.String())
	}

	products, err := store.ListProducts(ctx, models.ProductFilter{})
	if err != nil || len(products) != 1 {
		t.Fatalf("products = %+v, err = %v", products, err)
	}
	id := products[0].ID

	out.Reset()
	if err := app.ListProducts(ctx); err != nil {
		t.Fatalf("list products: %v", err)
	}
	if !strings.Contains(out.String(), "600 ml") || !strings.Contains(out.String(), "Bebidas") {
		t.Fatalf("unexpected products output:\n%s", out.String())
	}

	out.Reset()
	if err := app.Scrape(ctx, id, true); err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if !strings.Contains(out.String(), "Price found: 42.00") {
		t.Fatalf("unexpected scrape output:\n%s", out.String())
	}

	out.Reset()
	if err := app.Price(ctx, id); err != nil {
		t.Fatalf("price: %v", err)
	}
	if !strings.Contains(out.String(), "42.00 MXN") {
		t.Fatalf("unexpected price output:\n%s", out.String())
	}

	out.Reset()
	if err := app.Refresh(ctx, id, true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(out.String(), "Previous: 42.00") {
		t.Fatalf("unexpected refresh output:\n%s", out.String())
	}

	out.Reset()
	if err := app.HistoryList(ctx); err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out.String(), "Total: 1 product(s)") {
		t.Fatalf("unexpected history output:\n%s", out.String())
	}

	out.Reset()
	if err := app.History(ctx, id); err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.Count(out.String(), "MXN") != 3 {
		t.Fatalf("expected three price rows:\n%s", out.String())
	}
}

func TestSendFromStdinValidation(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.in = strings.NewReader(`{"comercio": "Walmart", "producto": "Agua"}`)

	err := app.Send(context.Background(), "-")
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSendRejectsInvalidProductURL(t *testing.T) {
	app, out, store := newTestApp(t)
	app.in = strings.NewReader(`{"comercio": "Walmart", "producto": "Agua", "precio": 10, "urlProducto": "walmart.com.mx/agua"}`)

	err := app.Send(context.Background(), "-")
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("err = %v, want scheme error", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output: %q", out.String())
	}
	products, _ := store.ListProducts(context.Background(), models.ProductFilter{})
	if len(products) != 0 {
		t.Fatalf("products = %d, want none", len(products))
	}
}

func TestScrapeUnknownProduct(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Scrape(context.Background(), 99, false); err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestLoginLogoutAndRun(t *testing.T) {
	app, out, _ := newTestApp(t)

	if err := app.Run(); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("run err = %v, want ErrNotLoggedIn", err)
	}
	if err := app.Login("ana@example.com"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out.String(), "Logged in as ana@example.com") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	if err := app.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if app.session.Authenticated() {
		t.Fatal("expected logged out")
	}
}

func TestSetConfig(t *testing.T) {
	tests := []struct {
		name    string
		set     string
		wantErr bool
		check   func(cfg *config.Config) bool
	}{
		{name: "base url", set: "cli.base_url=http://example.test/api", check: func(cfg *config.Config) bool { return cfg.CLI.BaseURL == "http://example.test/api" }},
		{name: "poll interval", set: "cli.poll_interval_ms=1500", check: func(cfg *config.Config) bool { return cfg.CLI.PollIntervalMS == 1500 }},
		{name: "api port", set: "api.port=9090", check: func(cfg *config.Config) bool { return cfg.API.Port == 9090 }},
		{name: "fresh window", set: "scraper.fresh_for_minutes=0", check: func(cfg *config.Config) bool { return cfg.Scraper.FreshForMinutes == 0 }},
		{name: "missing equals", set: "cli.base_url", wantErr: true},
		{name: "unknown section", set: "nope.key=1", wantErr: true},
		{name: "not a number", set: "cli.max_poll_attempts=many", wantErr: true},
		{name: "invalid value", set: "cli.max_poll_attempts=0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t)
			err := app.SetConfig(tt.set)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SetConfig(%q) should fail", tt.set)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetConfig(%q): %v", tt.set, err)
			}
			if !tt.check(app.cfg) {
				t.Fatalf("SetConfig(%q) did not apply", tt.set)
			}

			saved, err := config.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !tt.check(saved) {
				t.Fatalf("SetConfig(%q) was not persisted", tt.set)
			}
		})
	}
}
