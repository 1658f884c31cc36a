package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"price-tracker-go/pkg/cli"
	"price-tracker-go/pkg/cli/logger"
	"price-tracker-go/pkg/config"
	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		login  = flag.String("login", "", "Start a session for the given email")
		logout = flag.Bool("logout", false, "End the current session")

		stores      = flag.Bool("stores", false, "List stores")
		products    = flag.Bool("products", false, "List products")
		history     = flag.Int("history", 0, "Show price rows for a product ID")
		historyList = flag.Bool("history-list", false, "Show the latest price of every product")

		send    = flag.String("send", "", "Register a scraped observation from a JSON file ('-' for stdin)")
		scrape  = flag.Int("scrape", 0, "Scrape the price of a product ID and wait for the result")
		force   = flag.Bool("force", false, "Ignore recently cached prices when scraping")
		price   = flag.Int("price", 0, "Show the current price of a product ID")
		refresh = flag.Int("refresh", 0, "Scrape a product ID and compare with its previous price")

		// Config commands
		configShow  = flag.Bool("config-show", false, "Show current configuration")
		configSet   = flag.String("config-set", "", "Set a config value (format: section.key=value)")
		metricsAddr = flag.String("metrics-addr", "", "Expose Prometheus metrics on this address while running")
	)
	flag.Parse()
	defer logger.CloseLog()

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		fatal(fmt.Errorf("failed to load config: %w", err))
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		fatal(err)
	}
	sess := session.NewManager(session.DefaultPath(configDir))
	if err := sess.Load(); err != nil {
		fatal(err)
	}

	m := metrics.New()
	if *metricsAddr == "" {
		*metricsAddr = cfg.CLI.MetricsAddr
	}
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, m)
	}

	app := cli.NewApp(cfg, sess, m, logger.L())

	// Handle config and session commands first (don't need the backend)
	switch {
	case *configShow:
		app.ShowConfig()
		return
	case *configSet != "":
		if err := app.SetConfig(*configSet); err != nil {
			fatal(fmt.Errorf("failed to set config: %w", err))
		}
		fmt.Println("Configuration updated successfully")
		return
	case *login != "":
		run(app.Login(*login))
		return
	case *logout:
		run(app.Logout())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *stores:
		run(app.ListStores(ctx))
	case *products:
		run(app.ListProducts(ctx))
	case *history > 0:
		run(app.History(ctx, *history))
	case *historyList:
		run(app.HistoryList(ctx))
	case *send != "":
		run(app.Send(ctx, *send))
	case *scrape > 0:
		run(app.Scrape(ctx, *scrape, *force))
	case *price > 0:
		run(app.Price(ctx, *price))
	case *refresh > 0:
		run(app.Refresh(ctx, *refresh, *force))
	default:
		// Interactive TUI mode
		run(app.Run())
	}
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	logger.Log("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.LogError(err, "metrics server stopped")
	}
}

func run(err error) {
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	logger.LogError(err, "command failed")
	logger.CloseLog()
	fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
	os.Exit(1)
}
