package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/models"
)

// ErrTaskNotFound is returned for unknown or evicted task IDs
var ErrTaskNotFound = errors.New("scraping task not found")

// PriceFetcher reads the current price from a product page
type PriceFetcher interface {
	FetchPrice(ctx context.Context, url string) (decimal.Decimal, error)
}

// TaskStore is the persistence scraping tasks need
type TaskStore interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	LatestPrice(ctx context.Context, productID int) (*models.PriceHistoryEntry, error)
	AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (int, error)
}

// ScrapeTaskConfig tunes the task manager. Zero values use defaults.
type ScrapeTaskConfig struct {
	CacheSize      int
	FreshFor       time.Duration
	DefaultTimeout time.Duration
	Logger         *zap.SugaredLogger
	Metrics        *metrics.Metrics
}

type scrapeTask struct {
	mu        sync.Mutex
	productID int
	status    models.ScrapeStatusResponse
	started   time.Time
	finished  time.Time
}

func (t *scrapeTask) update(status models.TaskStatus, progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Status = status
	t.status.ProgressPercent = &progress
	t.status.Message = message
	if status.Terminal() {
		t.finished = time.Now()
	}
}

func (t *scrapeTask) snapshot() models.ScrapeStatusResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	resp := t.status
	end := t.finished
	if end.IsZero() {
		end = time.Now()
	}
	resp.ElapsedSeconds = end.Sub(t.started).Seconds()
	return resp
}

// ScrapeTaskManager runs asynchronous price scrapes and keeps recent task
// states in a bounded cache.
type ScrapeTaskManager struct {
	store   TaskStore
	fetcher PriceFetcher
	cfg     ScrapeTaskConfig
	log     *zap.SugaredLogger
	tasks   *lru.Cache[string, *scrapeTask]
	wg      sync.WaitGroup
}

// NewScrapeTaskManager creates a task manager
func NewScrapeTaskManager(store TaskStore, fetcher PriceFetcher, cfg ScrapeTaskConfig) (*ScrapeTaskManager, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.FreshFor < 0 {
		cfg.FreshFor = 0
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	tasks, err := lru.New[string, *scrapeTask](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create task cache: %w", err)
	}

	return &ScrapeTaskManager{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg,
		log:     log.Named("tasks"),
		tasks:   tasks,
	}, nil
}

// Start creates a scraping task for a product. A price captured within the
// freshness window yields a task that is already complete unless the
// request forces a refresh. A product without a URL yields a failed task.
func (m *ScrapeTaskManager) Start(ctx context.Context, productID int, req models.ScrapeStartRequest) (*models.ScrapeStartResponse, error) {
	product, err := m.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	task := &scrapeTask{productID: productID, started: time.Now()}
	task.status.Status = models.TaskStarted
	task.status.Message = "Scraping task queued"
	id := uuid.New().String()

	force := req.ForceRefresh != nil && *req.ForceRefresh
	if !force && m.cfg.FreshFor > 0 {
		latest, err := m.store.LatestPrice(ctx, productID)
		if err == nil && time.Since(latest.CapturedAt.Time) < m.cfg.FreshFor {
			price := latest.Price
			task.status.FoundPrice = &price
			task.update(models.TaskCompleted, 100, "Recent price available, no scraping needed")
			m.tasks.Add(id, task)
			m.cfg.Metrics.IncTask("cached")
			return startResponse(id, task), nil
		}
	}

	if product.URL == nil || *product.URL == "" {
		task.update(models.TaskError, 0, "Product has no url_producto to scrape")
		m.tasks.Add(id, task)
		m.cfg.Metrics.IncTask("error")
		return startResponse(id, task), nil
	}

	timeout := m.cfg.DefaultTimeout
	if req.TimeoutSeconds != nil && *req.TimeoutSeconds > 0 {
		timeout = time.Duration(*req.TimeoutSeconds) * time.Second
	}

	m.tasks.Add(id, task)
	m.wg.Add(1)
	go m.run(id, task, *product.URL, timeout)

	m.log.Infow("scraping task started", "task_id", id, "product_id", productID, "url", *product.URL, "timeout", timeout)
	return startResponse(id, task), nil
}

func startResponse(id string, task *scrapeTask) *models.ScrapeStartResponse {
	snap := task.snapshot()
	estimated := 5
	return &models.ScrapeStartResponse{
		TaskID:           id,
		Status:           snap.Status,
		Message:          snap.Message,
		EstimatedSeconds: &estimated,
	}
}

func (m *ScrapeTaskManager) run(id string, task *scrapeTask, url string, timeout time.Duration) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	task.update(models.TaskInProgress, 10, "Fetching product page")

	price, err := m.fetcher.FetchPrice(ctx, url)
	if err != nil {
		m.fail(id, task, fmt.Sprintf("Scraping failed: %v", err))
		return
	}

	task.update(models.TaskInProgress, 80, "Saving price")

	value := price.InexactFloat64()
	if _, err := m.store.AddPriceHistory(ctx, models.PriceHistoryCreate{
		ProductID: task.productID,
		Price:     value,
		Currency:  models.DefaultCurrency,
	}); err != nil {
		m.fail(id, task, fmt.Sprintf("Could not save price: %v", err))
		return
	}

	task.mu.Lock()
	task.status.FoundPrice = &value
	task.mu.Unlock()
	task.update(models.TaskCompleted, 100, fmt.Sprintf("Price found: %s", price.StringFixed(2)))

	m.cfg.Metrics.IncTask("completed")
	m.cfg.Metrics.ObserveTask(time.Since(task.started))
	m.log.Infow("scraping task completed", "task_id", id, "product_id", task.productID, "price", value)
}

func (m *ScrapeTaskManager) fail(id string, task *scrapeTask, message string) {
	task.update(models.TaskError, 100, message)
	m.cfg.Metrics.IncTask("error")
	m.cfg.Metrics.ObserveTask(time.Since(task.started))
	m.log.Warnw("scraping task failed", "task_id", id, "product_id", task.productID, "reason", message)
}

// Status returns the current state of a task
func (m *ScrapeTaskManager) Status(taskID string) (*models.ScrapeStatusResponse, error) {
	task, ok := m.tasks.Get(taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	snap := task.snapshot()
	return &snap, nil
}

// Wait blocks until every running task has finished
func (m *ScrapeTaskManager) Wait() {
	m.wg.Wait()
}
