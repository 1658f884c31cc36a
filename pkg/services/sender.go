package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"price-tracker-go/pkg/metrics"
	"price-tracker-go/pkg/models"
)

const (
	DefaultCategory    = "General"
	DefaultBrand       = "Desconocida"
	DefaultCountryCode = "MX"
)

// SendState is the observable step of a Send call
type SendState string

const (
	SendIdle            SendState = "idle"
	SendSending         SendState = "sending"
	SendResolvingIDs    SendState = "resolving_ids"
	SendCreatingProduct SendState = "creating_product"
	SendCreatingHistory SendState = "creating_history"
	SendOK              SendState = "ok"
	SendErr             SendState = "err"
)

// Entity kinds used in resolution errors and metrics
const (
	EntityStore    = "store"
	EntityCategory = "category"
	EntityBrand    = "brand"
)

// CatalogBackend is the subset of the REST API the sender writes through.
type CatalogBackend interface {
	ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error)
	CreateStore(ctx context.Context, store models.StoreCreate) (*models.Created, error)
	ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Created, error)
	ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error)
	CreateBrand(ctx context.Context, name string) (*models.Created, error)
	CreateProduct(ctx context.Context, product models.ProductCreate) (*models.Created, error)
	AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (*models.Created, error)
}

// ValidationError is returned before any network call is made
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EntityError wraps a failure while resolving a store, category or brand
type EntityError struct {
	Kind string
	Name string
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("failed to resolve %s '%s': %v", e.Kind, e.Name, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// SenderConfig holds optional observers for a Sender
type SenderConfig struct {
	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
	// OnUpdate is called after every state change.
	OnUpdate func(SendState, string)
}

// Sender turns a flat scraping observation into store, category, brand,
// product and price history records. Writes are forward-only: entities
// created before a failing step are kept.
type Sender struct {
	backend CatalogBackend
	cfg     SenderConfig
	log     *zap.SugaredLogger

	mu       sync.Mutex
	state    SendState
	feedback string
}

// NewSender creates a sender in the idle state
func NewSender(backend CatalogBackend, cfg SenderConfig) *Sender {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sender{
		backend: backend,
		cfg:     cfg,
		log:     log.Named("sender"),
		state:   SendIdle,
	}
}

// Status returns the current state and feedback text
func (s *Sender) Status() (SendState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.feedback
}

// Reset returns the sender to idle. A Send already running is not
// cancelled and will keep reporting its progress.
func (s *Sender) Reset() {
	s.set(SendIdle, "")
}

func (s *Sender) set(state SendState, feedback string) {
	s.mu.Lock()
	s.state = state
	s.feedback = feedback
	s.mu.Unlock()

	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(state, feedback)
	}
}

// ValidatePayload checks the fields required to register a price
func ValidatePayload(p models.ScrapingDataPayload) error {
	if strings.TrimSpace(p.Product) == "" || strings.TrimSpace(p.Store) == "" || p.Price == nil {
		return &ValidationError{Message: "product, store and price are required"}
	}
	if math.IsNaN(*p.Price) || math.IsInf(*p.Price, 0) {
		return &ValidationError{Message: "price must be a finite number"}
	}
	return nil
}

// Send resolves the payload's entities, creates the product and appends a
// price history row. Every call appends a new row.
func (s *Sender) Send(ctx context.Context, p models.ScrapingDataPayload) error {
	s.set(SendSending, "Starting send...")

	if err := ValidatePayload(p); err != nil {
		return s.fail(err)
	}

	s.set(SendResolvingIDs, "Resolving store, category and brand IDs...")

	storeID, err := s.resolveStore(ctx, p.Store, p.StoreURL)
	if err != nil {
		return s.fail(err)
	}
	categoryID, err := s.resolveCategory(ctx, firstNonEmpty(p.Category, DefaultCategory))
	if err != nil {
		return s.fail(err)
	}
	brandID, err := s.resolveBrand(ctx, firstNonEmpty(p.Brand, DefaultBrand))
	if err != nil {
		return s.fail(err)
	}

	s.set(SendCreatingProduct, fmt.Sprintf("IDs: store=%d, category=%d, brand=%d. Creating product...", storeID, categoryID, brandID))

	product, err := s.backend.CreateProduct(ctx, models.ProductCreate{
		StoreID:    storeID,
		CategoryID: categoryID,
		BrandID:    brandID,
		Name:       p.Product,
		Flavor:     models.StringOrNil(p.Flavor),
		VolumeML:   ExtractVolumeML(p.Variant, p.Product),
		UPC:        models.StringOrNil(p.UPC),
		SKU:        models.StringOrNil(p.SKU),
		URL:        models.StringOrNil(p.ProductURL),
	})
	if err != nil {
		return s.fail(fmt.Errorf("failed to create product '%s': %w", p.Product, err))
	}

	s.set(SendCreatingHistory, fmt.Sprintf("Product '%s' saved with ID %d. Recording price...", p.Product, product.ID))

	if _, err := s.backend.AddPriceHistory(ctx, models.PriceHistoryCreate{
		ProductID:  product.ID,
		Price:      *p.Price,
		Currency:   firstNonEmpty(p.Currency, models.DefaultCurrency),
		PromoLabel: models.StringOrNil(p.PromoLabel),
	}); err != nil {
		return s.fail(fmt.Errorf("failed to record price: %w", err))
	}

	s.cfg.Metrics.IncSend("ok")
	s.log.Infow("price registered", "product", p.Product, "store", p.Store, "product_id", product.ID, "price", *p.Price)
	s.set(SendOK, fmt.Sprintf("%s at %s registered. Price: %v", p.Product, p.Store, *p.Price))
	return nil
}

func (s *Sender) fail(err error) error {
	result := "error"
	if _, ok := err.(*ValidationError); ok {
		result = "invalid"
	}
	s.cfg.Metrics.IncSend(result)
	s.log.Warnw("send failed", "error", err)
	s.set(SendErr, fmt.Sprintf("Error: %v. The data was not registered.", err))
	return err
}

func (s *Sender) resolveStore(ctx context.Context, name, baseURL string) (int, error) {
	return s.getOrCreate(EntityStore, name,
		func() (int, bool, error) {
			stores, err := s.backend.ListStores(ctx, models.StoreFilter{Name: name})
			if err != nil || len(stores) == 0 {
				return 0, false, err
			}
			return stores[0].ID, true, nil
		},
		func() (*models.Created, error) {
			if strings.TrimSpace(baseURL) == "" {
				baseURL = placeholderStoreURL(name)
			}
			return s.backend.CreateStore(ctx, models.StoreCreate{
				Name:        name,
				BaseURL:     baseURL,
				CountryCode: DefaultCountryCode,
			})
		},
	)
}

func (s *Sender) resolveCategory(ctx context.Context, name string) (int, error) {
	return s.getOrCreate(EntityCategory, name,
		func() (int, bool, error) {
			categories, err := s.backend.ListCategories(ctx, models.NameFilter{Name: name})
			if err != nil || len(categories) == 0 {
				return 0, false, err
			}
			return categories[0].ID, true, nil
		},
		func() (*models.Created, error) {
			return s.backend.CreateCategory(ctx, name)
		},
	)
}

func (s *Sender) resolveBrand(ctx context.Context, name string) (int, error) {
	return s.getOrCreate(EntityBrand, name,
		func() (int, bool, error) {
			brands, err := s.backend.ListBrands(ctx, models.NameFilter{Name: name})
			if err != nil || len(brands) == 0 {
				return 0, false, err
			}
			return brands[0].ID, true, nil
		},
		func() (*models.Created, error) {
			return s.backend.CreateBrand(ctx, name)
		},
	)
}

// getOrCreate looks an entity up by exact name and creates it when the
// lookup returns nothing. The first match wins.
func (s *Sender) getOrCreate(
	kind, name string,
	find func() (int, bool, error),
	create func() (*models.Created, error),
) (int, error) {
	if strings.TrimSpace(name) == "" || strings.EqualFold(strings.TrimSpace(name), "n/a") {
		return 0, &EntityError{Kind: kind, Name: name, Err: &ValidationError{Message: "name cannot be empty or N/A"}}
	}

	id, found, err := find()
	if err != nil {
		return 0, &EntityError{Kind: kind, Name: name, Err: err}
	}
	if found {
		s.cfg.Metrics.IncResolution(kind, "found")
		return id, nil
	}

	created, err := create()
	if err != nil {
		return 0, &EntityError{Kind: kind, Name: name, Err: err}
	}
	s.cfg.Metrics.IncResolution(kind, "created")
	s.log.Infow("entity created", "kind", kind, "name", name, "id", created.ID)
	return created.ID, nil
}

func placeholderStoreURL(name string) string {
	return "http://" + strings.Join(strings.Fields(strings.ToLower(name)), "") + ".com"
}

func firstNonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
