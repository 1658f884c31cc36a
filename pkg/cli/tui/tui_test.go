package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/scraper"
	"price-tracker-go/pkg/services"
	"price-tracker-go/pkg/session"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeBackend serves every interface the flows need from memory.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   int
	products []models.Product
	history  []models.PriceHistoryEntry
	listErr  error
	price    float64
}

func (f *fakeBackend) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) created() (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.Created{Message: "created", ID: f.id()}, nil
}

func (f *fakeBackend) ListStores(ctx context.Context, filter models.StoreFilter) ([]models.Store, error) {
	return nil, nil
}

func (f *fakeBackend) CreateStore(ctx context.Context, store models.StoreCreate) (*models.Created, error) {
	return f.created()
}

func (f *fakeBackend) ListCategories(ctx context.Context, filter models.NameFilter) ([]models.Category, error) {
	return nil, nil
}

func (f *fakeBackend) CreateCategory(ctx context.Context, name string) (*models.Created, error) {
	return f.created()
}

func (f *fakeBackend) ListBrands(ctx context.Context, filter models.NameFilter) ([]models.Brand, error) {
	return nil, nil
}

func (f *fakeBackend) CreateBrand(ctx context.Context, name string) (*models.Created, error) {
	return f.created()
}

func (f *fakeBackend) CreateProduct(ctx context.Context, product models.ProductCreate) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.products = append(f.products, models.Product{ID: id, Name: product.Name})
	return &models.Created{ID: id}, nil
}

func (f *fakeBackend) AddPriceHistory(ctx context.Context, entry models.PriceHistoryCreate) (*models.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.history = append([]models.PriceHistoryEntry{{ID: id, ProductID: entry.ProductID, Price: entry.Price, Currency: entry.Currency}}, f.history...)
	return &models.Created{ID: id}, nil
}

func (f *fakeBackend) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Product{}, f.products...), nil
}

func (f *fakeBackend) ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []models.PriceHistoryEntry
	for _, r := range f.history {
		if filter.ProductID == 0 || r.ProductID == filter.ProductID {
			rows = append(rows, r)
		}
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	if rows == nil {
		rows = []models.PriceHistoryEntry{}
	}
	return rows, nil
}

func (f *fakeBackend) StartPriceScrape(ctx context.Context, productID int, req models.ScrapeStartRequest) (*models.ScrapeStartResponse, error) {
	return &models.ScrapeStartResponse{TaskID: "task-1", Status: models.TaskStarted, Message: "queued"}, nil
}

func (f *fakeBackend) ScrapeStatus(ctx context.Context, taskID string) (*models.ScrapeStatusResponse, error) {
	price := f.price
	return &models.ScrapeStatusResponse{Status: models.TaskCompleted, FoundPrice: &price, Message: "done", ElapsedSeconds: 1.5}, nil
}

func newDeps(t *testing.T, backend *fakeBackend) Dependencies {
	t.Helper()
	sess := session.NewManager(filepath.Join(t.TempDir(), "session.toml"))
	if _, err := sess.Login("tester@example.com"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return Dependencies{
		Client:  backend,
		Session: sess,
		NewPoller: func(onUpdate func(scraper.Snapshot)) *scraper.Poller {
			return scraper.NewPoller(backend, scraper.Config{Interval: time.Millisecond, OnUpdate: onUpdate})
		},
		NewSender: func(onUpdate func(services.SendState, string)) *services.Sender {
			return services.NewSender(backend, services.SenderConfig{OnUpdate: onUpdate})
		},
		ScrapeOptions: func(force bool) scraper.StartOptions {
			return scraper.StartOptions{ForceRefresh: force}
		},
	}
}

// collect runs cmd and any batched commands in order and returns the
// non-nil messages they produce.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func findMsg[T any](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func TestRootMenuNavigation(t *testing.T) {
	deps := newDeps(t, &fakeBackend{})
	root := NewRootModel(deps).(*rootModel)

	if !strings.Contains(root.View(), "tester@example.com") {
		t.Fatalf("menu should show the session:\n%s", root.View())
	}

	root.Update(key("1"))
	if !root.IsDelegating() {
		t.Fatal("expected send form to be active")
	}
	root.Update(MenuNavigationMsg{})
	if root.IsDelegating() {
		t.Fatal("expected menu after MenuNavigationMsg")
	}

	_, cmd := root.Update(key("l"))
	if deps.Session.Authenticated() {
		t.Fatal("'l' should log out")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("logout should quit")
	}
}

func TestSendFormRegistersObservation(t *testing.T) {
	backend := &fakeBackend{}
	form := newSendForm(newDeps(t, backend))
	form.fields[fieldStore].input.SetValue("Walmart")
	form.fields[fieldProduct].input.SetValue("Coca-Cola")
	form.fields[fieldVariant].input.SetValue("600 ml")
	form.fields[fieldPrice].input.SetValue("18.50")

	_, cmd := form.Update(key("ctrl+s"))
	if !form.sending {
		t.Fatal("expected sending state")
	}
	for _, msg := range collect(cmd) {
		form.Update(msg)
	}

	if form.sending || !form.done || form.err != nil {
		t.Fatalf("sending=%v done=%v err=%v", form.sending, form.done, form.err)
	}
	if form.state != services.SendOK {
		t.Fatalf("state = %s", form.state)
	}
	if !strings.Contains(form.View(), "Coca-Cola at Walmart registered") {
		t.Fatalf("unexpected view:\n%s", form.View())
	}
	if len(backend.history) != 1 || backend.history[0].Price != 18.5 {
		t.Fatalf("history = %+v", backend.history)
	}

	form.Update(key("n"))
	if form.done || form.value(fieldStore) != "Walmart" || form.value(fieldProduct) != "" {
		t.Fatalf("'n' should keep the store and clear the product")
	}
}

func TestSendFormRejectsBadPrice(t *testing.T) {
	form := newSendForm(newDeps(t, &fakeBackend{}))
	form.fields[fieldPrice].input.SetValue("abc")

	_, cmd := form.Update(key("ctrl+s"))
	if cmd != nil || form.sending {
		t.Fatal("invalid price must not start a send")
	}
	if !strings.Contains(form.View(), `invalid price "abc"`) {
		t.Fatalf("unexpected view:\n%s", form.View())
	}
}

func TestSendFormRejectsNonFinitePrice(t *testing.T) {
	backend := &fakeBackend{}
	form := newSendForm(newDeps(t, backend))
	form.fields[fieldStore].input.SetValue("Walmart")
	form.fields[fieldProduct].input.SetValue("Coca-Cola")
	form.fields[fieldPrice].input.SetValue("NaN")

	_, cmd := form.Update(key("ctrl+s"))
	for _, msg := range collect(cmd) {
		form.Update(msg)
	}

	var verr *services.ValidationError
	if !errors.As(form.err, &verr) {
		t.Fatalf("err = %v, want ValidationError", form.err)
	}
	if backend.nextID != 0 || len(backend.products) != 0 {
		t.Fatalf("nothing should be created, got %d ids", backend.nextID)
	}
}

func TestSendFormMissingFieldsReportsValidation(t *testing.T) {
	form := newSendForm(newDeps(t, &fakeBackend{}))

	_, cmd := form.Update(key("ctrl+s"))
	for _, msg := range collect(cmd) {
		form.Update(msg)
	}

	var verr *services.ValidationError
	if !errors.As(form.err, &verr) {
		t.Fatalf("err = %v, want ValidationError", form.err)
	}
	if form.state != services.SendErr {
		t.Fatalf("state = %s", form.state)
	}
}

func TestScrapeFlowFollowsTaskToCompletion(t *testing.T) {
	backend := &fakeBackend{price: 42, products: []models.Product{{ID: 7, Name: "Coca-Cola", StoreName: "Walmart"}}}
	flow := newScrapeFlow(newDeps(t, backend)).(*ViewportWrapper)
	inner := flow.model.(*scrapeFlow)

	flow.Update(findMsg[scrapeProductsLoadedMsg](t, collect(inner.loadProducts())))
	if inner.step != stepScrapeSelect || !strings.Contains(flow.View(), "Coca-Cola") {
		t.Fatalf("expected product list, step=%d", inner.step)
	}

	_, cmd := flow.Update(key("enter"))
	if inner.step != stepScrapeRunning {
		t.Fatalf("step = %d, want running", inner.step)
	}
	flow.Update(findMsg[scrapeFinishedMsg](t, collect(cmd)))

	if inner.step != stepScrapeDone || inner.err != nil {
		t.Fatalf("step=%d err=%v", inner.step, inner.err)
	}
	if view := flow.View(); !strings.Contains(view, "42.00") {
		t.Fatalf("expected found price in view:\n%s", view)
	}
}

func TestScrapeFlowDropsStaleRuns(t *testing.T) {
	backend := &fakeBackend{products: []models.Product{{ID: 1, Name: "Agua"}}}
	flow := newScrapeFlow(newDeps(t, backend)).(*ViewportWrapper)
	inner := flow.model.(*scrapeFlow)
	flow.Update(scrapeProductsLoadedMsg{products: backend.products})
	inner.run = 3
	inner.step = stepScrapeRunning

	flow.Update(scrapeFinishedMsg{run: 2, err: errors.New("old run")})
	if inner.step != stepScrapeRunning || inner.err != nil {
		t.Fatal("a finished message from an older run must be ignored")
	}
}

func TestScrapeFlowLoadError(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("backend down")}
	flow := newScrapeFlow(newDeps(t, backend)).(*ViewportWrapper)
	inner := flow.model.(*scrapeFlow)

	flow.Update(findMsg[scrapeProductsLoadedMsg](t, collect(inner.loadProducts())))
	if !strings.Contains(flow.View(), "backend down") {
		t.Fatalf("unexpected view:\n%s", flow.View())
	}
	if _, cmd := flow.Update(key("x")); cmd == nil {
		t.Fatal("any key should return to the menu")
	}
}

func TestHistoryListShowsLatestAndDetail(t *testing.T) {
	backend := &fakeBackend{
		products: []models.Product{{ID: 1, Name: "Coca-Cola", StoreName: "Walmart", CategoryName: "Bebidas"}},
		history: []models.PriceHistoryEntry{
			{ID: 11, ProductID: 1, Price: 22, Currency: "MXN", CapturedAt: models.NewTimestamp(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))},
			{ID: 10, ProductID: 1, Price: 20, Currency: "MXN", CapturedAt: models.NewTimestamp(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))},
		},
	}
	wrapper := newHistoryList(newDeps(t, backend)).(*ViewportWrapper)
	list := wrapper.model.(*historyList)

	list.Update(findMsg[historyLoadedMsg](t, collect(list.load())))
	if len(list.entries) != 1 || list.entries[0].Price != 22 {
		t.Fatalf("entries = %+v", list.entries)
	}
	if view := list.View(); !strings.Contains(view, "22.00 MXN") {
		t.Fatalf("unexpected view:\n%s", view)
	}

	_, cmd := list.Update(key("enter"))
	list.Update(findMsg[historyDetailMsg](t, collect(cmd)))
	view := list.View()
	if !strings.Contains(view, "+2.00") || !strings.Contains(view, "+10.00%") {
		t.Fatalf("expected price change in detail:\n%s", view)
	}

	list.Update(key("esc"))
	if list.detail != nil {
		t.Fatal("esc should close the detail view")
	}
}

func TestViewportWrapperHelpToggle(t *testing.T) {
	wrapper := newHistoryList(newDeps(t, &fakeBackend{})).(*ViewportWrapper)
	wrapper.Update(key("?"))
	if !strings.Contains(wrapper.View(), "Keyboard Shortcuts") {
		t.Fatal("expected help overlay")
	}
	wrapper.Update(key("?"))
	if wrapper.showHelp {
		t.Fatal("second '?' should close help")
	}
}
