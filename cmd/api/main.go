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
	"time"

	"go.uber.org/zap"

	"price-tracker-go/pkg/api"
	"price-tracker-go/pkg/config"
	"price-tracker-go/pkg/db"
	"price-tracker-go/pkg/extract"
	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/services"
)

type store interface {
	services.CatalogStore
	services.TaskStore
	Ping(ctx context.Context) error
}

func main() {
	memory := flag.Bool("memory", false, "Keep the catalog in memory instead of PostgreSQL")
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid config", "error", err)
	}

	ctx := context.Background()

	// Initialize storage
	var catalog store
	if *memory {
		log.Infow("using in-memory store")
		catalog = db.NewMemoryStore()
	} else {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			log.Fatalw("failed to migrate database", "error", err)
		}
		catalog = database
	}

	m := metrics.New()
	fetcher := extract.NewFetcher(cfg.Scraper.UserAgent, time.Duration(cfg.Scraper.RequestTimeout)*time.Second, log)
	tasks, err := services.NewScrapeTaskManager(catalog, fetcher, services.ScrapeTaskConfig{
		CacheSize:      cfg.Scraper.TaskCacheSize,
		FreshFor:       cfg.FreshFor(),
		DefaultTimeout: time.Duration(cfg.CLI.ScrapeTimeout) * time.Second,
		Logger:         log,
		Metrics:        m,
	})
	if err != nil {
		log.Fatalw("failed to create task manager", "error", err)
	}

	// Initialize router
	router := api.NewRouter(api.Dependencies{
		Catalog: services.NewCatalogService(catalog),
		Tasks:   tasks,
		Ping:    catalog.Ping,
		Metrics: m,
		Logger:  log,
		APIKey:  cfg.API.APIKey,
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("API server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}
	tasks.Wait()

	log.Infow("server exited")
}
