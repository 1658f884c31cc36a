package tui

import (
	"context"
	"fmt"
	"strings"

	"price-tracker-go/pkg/cli/logger"
	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/scraper"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	stepScrapeLoading = iota
	stepScrapeSelect
	stepScrapeRunning
	stepScrapeDone
)

// scrapeFlow lets the user pick a product, starts a backend scraping task
// for it and follows the task with the Poller until it finishes.
type scrapeFlow struct {
	deps Dependencies

	step     int
	products []models.Product
	selected int
	err      error

	run      int
	poller   *scraper.Poller
	runCtx   context.Context
	cancel   context.CancelFunc
	updates  chan scraper.Snapshot
	snap     scraper.Snapshot
	spinner  spinner.Model
	progress progress.Model
}

type scrapeProductsLoadedMsg struct {
	products []models.Product
	err      error
}

type scrapeUpdateMsg struct {
	run  int
	snap scraper.Snapshot
}

type scrapeFinishedMsg struct {
	run  int
	snap scraper.Snapshot
	err  error
}

func newScrapeFlow(deps Dependencies) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	flow := &scrapeFlow{
		deps:     deps,
		step:     stepScrapeLoading,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	return NewViewportWrapper(flow, ViewportConfig{
		EnableHelp:  true,
		HelpContent: ScrapeHelpContent,
	})
}

func (m *scrapeFlow) Init() tea.Cmd {
	return tea.Batch(m.loadProducts(), m.spinner.Tick)
}

func (m *scrapeFlow) loadProducts() tea.Cmd {
	return func() tea.Msg {
		products, err := m.deps.Client.ListProducts(context.Background(), models.ProductFilter{})
		return scrapeProductsLoadedMsg{products: products, err: err}
	}
}

// start launches a new run. Snapshots from earlier runs carry an older run
// number and are dropped.
func (m *scrapeFlow) start(force bool) tea.Cmd {
	product := m.products[m.selected]
	m.run++
	run := m.run
	m.step = stepScrapeRunning
	m.err = nil
	m.snap = scraper.Snapshot{}

	updates := make(chan scraper.Snapshot, 32)
	m.updates = updates
	m.poller = m.deps.NewPoller(func(s scraper.Snapshot) {
		select {
		case updates <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.runCtx = ctx
	m.cancel = cancel
	poller := m.poller
	opts := m.deps.ScrapeOptions(force)

	logger.Log("scrapeFlow.start: product_id=%d force=%v run=%d", product.ID, force, run)
	follow := func() tea.Msg {
		defer cancel()
		if err := poller.StartScraping(ctx, product.ID, opts); err != nil {
			return scrapeFinishedMsg{run: run, snap: poller.Snapshot(), err: err}
		}
		snap, err := poller.Wait(ctx)
		return scrapeFinishedMsg{run: run, snap: snap, err: err}
	}
	return tea.Batch(follow, listenScrape(ctx, run, updates), m.spinner.Tick)
}

func listenScrape(ctx context.Context, run int, updates <-chan scraper.Snapshot) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-updates:
			return scrapeUpdateMsg{run: run, snap: s}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *scrapeFlow) stop() {
	if m.poller != nil {
		m.poller.StopPolling()
	}
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *scrapeFlow) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case scrapeProductsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.step = stepScrapeDone
			return m, nil
		}
		m.products = msg.products
		m.step = stepScrapeSelect
		return m, nil

	case scrapeUpdateMsg:
		if msg.run != m.run || m.step != stepScrapeRunning {
			return m, nil
		}
		m.snap = msg.snap
		return m, listenScrape(m.runCtx, msg.run, m.updates)

	case scrapeFinishedMsg:
		if msg.run != m.run {
			return m, nil
		}
		m.snap = msg.snap
		m.err = msg.err
		m.step = stepScrapeDone
		return m, nil

	case spinner.TickMsg:
		if m.step != stepScrapeRunning && m.step != stepScrapeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MenuNavigationMsg:
		m.stop()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m *scrapeFlow) handleKey(key string) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepScrapeSelect:
		if len(m.products) == 0 {
			return m, backToMenu
		}
		if sel, ok := handleListNavigation(key, m.selected, len(m.products)); ok {
			m.selected = sel
			return m, nil
		}
		switch key {
		case "enter", "f":
			return m, m.start(key == "f")
		case "esc", "q":
			return m, backToMenu
		}

	case stepScrapeRunning:
		if key == "esc" {
			m.stop()
		}

	case stepScrapeDone:
		if m.products == nil {
			return m, backToMenu
		}
		switch key {
		case "enter", "r":
			return m, m.start(false)
		case "esc", "q", "b":
			m.step = stepScrapeSelect
			m.err = nil
			return m, nil
		}
		return m, backToMenu

	default:
		if key == "esc" {
			return m, backToMenu
		}
	}
	return m, nil
}

func (m *scrapeFlow) View() string {
	switch m.step {
	case stepScrapeLoading:
		return renderLoadingState(m.spinner.View() + " Loading products...")
	case stepScrapeSelect:
		return renderProductList(m.products, m.selected, "Scrape Product Price",
			"Enter scrapes • f forces a fresh scrape • Esc returns to the menu")
	case stepScrapeRunning:
		return m.runningView()
	}
	return m.doneView()
}

func (m *scrapeFlow) productName() string {
	if m.selected < len(m.products) {
		return m.products[m.selected].Name
	}
	return ""
}

func (m *scrapeFlow) runningView() string {
	var b strings.Builder
	b.WriteString(renderTitle("Scraping " + m.productName()))

	status := "starting"
	percent := 0
	if t := m.snap.Task; t != nil {
		status = string(t.Status)
		percent = t.ProgressPercent
	}
	b.WriteString(fieldLabelStyle.Render("Status:"))
	b.WriteString(fmt.Sprintf(" %s\n", status))
	b.WriteString(fieldLabelStyle.Render("Task:"))
	b.WriteString(fmt.Sprintf(" %s\n\n", firstOr(m.snap.TaskID, "-")))

	b.WriteString(m.progress.ViewAs(float64(percent)/100) + "\n\n")

	msg := m.snap.Message()
	if m.snap.Err != nil && m.snap.Err.IsRetryable() {
		b.WriteString(renderWarning(msg) + "\n")
	} else {
		b.WriteString(m.spinner.View() + " " + infoStyle.Render(firstOr(msg, "Waiting for the backend...")) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("Press Esc to stop polling.") + "\n")
	return b.String()
}

func (m *scrapeFlow) doneView() string {
	if m.products == nil {
		return renderErrorView(m.err)
	}

	var b strings.Builder
	b.WriteString(renderTitle("Scraping " + m.productName()))

	switch {
	case m.err != nil:
		b.WriteString(renderInlineError(m.err) + "\n")
	case m.snap.Task != nil && m.snap.Task.FoundPrice != nil:
		b.WriteString(renderSuccess("Scraping completed") + "\n\n")
		b.WriteString(fieldLabelStyle.Render("Price found:"))
		b.WriteString(" " + priceStyle.Render(fmt.Sprintf("%.2f", *m.snap.Task.FoundPrice)) + "\n")
	default:
		b.WriteString(renderSuccess(firstOr(m.snap.Message(), "Scraping completed")) + "\n")
	}
	if t := m.snap.Task; t != nil && t.ElapsedSeconds > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Took %.1fs", t.ElapsedSeconds)) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("Enter/r scrape again • Esc/b pick another product • any other key for the menu") + "\n")
	return b.String()
}

func firstOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
