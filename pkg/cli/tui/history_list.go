package tui

import (
	"context"
	"fmt"
	"strings"

	"price-tracker-go/pkg/cli/format"
	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

const detailRows = 10

// historyList shows the latest price per product and, on Enter, the recent
// price rows of the selected product.
type historyList struct {
	deps    Dependencies
	loading bool
	entries []models.HistoryEntry
	cursor  int
	err     error

	detail     *models.HistoryEntry
	detailRows []models.PriceHistoryEntry
	detailErr  error
}

type historyLoadedMsg struct {
	entries []models.HistoryEntry
	err     error
}

type historyDetailMsg struct {
	productID int
	rows      []models.PriceHistoryEntry
	err       error
}

func newHistoryList(deps Dependencies) tea.Model {
	return NewViewportWrapper(&historyList{deps: deps, loading: true}, ViewportConfig{
		ShowFooter:  true,
		UseViewport: true,
		EnableHelp:  true,
		HelpContent: HistoryHelpContent,
	})
}

func (m *historyList) Init() tea.Cmd {
	return m.load()
}

func (m *historyList) load() tea.Cmd {
	lister := services.NewHistoryLister(m.deps.Client)
	return func() tea.Msg {
		entries, err := lister.Build(context.Background(), services.DefaultHistoryLimit)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m *historyList) loadDetail(productID int) tea.Cmd {
	return func() tea.Msg {
		rows, err := m.deps.Client.ListPriceHistory(context.Background(), models.PriceHistoryFilter{
			ProductID: productID,
			Limit:     detailRows,
		})
		return historyDetailMsg{productID: productID, rows: rows, err: err}
	}
}

func (m *historyList) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loading = false
		m.entries, m.err = msg.entries, msg.err
		if m.cursor >= len(m.entries) {
			m.cursor = 0
		}
		return m, nil

	case historyDetailMsg:
		if m.detail == nil || m.detail.ProductID != msg.productID {
			return m, nil
		}
		m.detailRows, m.detailErr = msg.rows, msg.err
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if m.detail != nil {
			switch key {
			case "esc", "b", "backspace":
				m.detail, m.detailRows, m.detailErr = nil, nil, nil
			}
			return m, nil
		}
		if m.err != nil || (!m.loading && len(m.entries) == 0) {
			return m, backToMenu
		}
		if sel, ok := handleListNavigation(key, m.cursor, len(m.entries)); ok {
			m.cursor = sel
			return m, nil
		}
		switch key {
		case "enter":
			if m.cursor < len(m.entries) {
				entry := m.entries[m.cursor]
				m.detail = &entry
				return m, m.loadDetail(entry.ProductID)
			}
		case "r":
			m.loading = true
			return m, m.load()
		case "esc", "q":
			return m, backToMenu
		}
	}
	return m, nil
}

func (m *historyList) View() string {
	switch {
	case m.loading:
		return renderLoadingState("Loading price history...")
	case m.err != nil:
		return renderErrorView(m.err)
	case len(m.entries) == 0:
		return renderEmptyState("No price history yet.")
	case m.detail != nil:
		return m.detailView()
	}

	var b strings.Builder
	b.WriteString(renderTitle("Price History"))
	b.WriteString(boldStyle.Render("Latest price per product") + "\n\n")

	for i, e := range m.entries {
		marker := " "
		style := productNameStyle
		if i == m.cursor {
			marker = selectedMarkerStyle.Render("→")
			style = selectedStyle
		}
		b.WriteString(fmt.Sprintf("%s %s  %s\n", marker, style.Render(format.Truncate(e.Product, 50)), priceStyle.Render(format.Money(e.Price, e.Currency))))
		meta := []string{e.Store, e.Category, format.Date(e.CapturedAt.Time)}
		if code := models.Deref(e.UPC, models.Deref(e.SKU, "")); code != "" {
			meta = append(meta, code)
		}
		b.WriteString("  " + productMetaStyle.Render(strings.Join(meta, " · ")) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(fmt.Sprintf("%d product(s) • Enter details • r reload • Esc menu", len(m.entries))) + "\n")
	return b.String()
}

func (m *historyList) detailView() string {
	var b strings.Builder
	b.WriteString(renderTitle(m.detail.Product))
	b.WriteString(productMetaStyle.Render(m.detail.Store+" · "+m.detail.Category) + "\n\n")

	switch {
	case m.detailErr != nil:
		b.WriteString(renderInlineError(m.detailErr) + "\n")
	case m.detailRows == nil:
		b.WriteString(renderLoadingState("Loading price rows..."))
	default:
		if len(m.detailRows) > 1 {
			change := services.ComparePrices(&m.detailRows[1], decimal.NewFromFloat(m.detailRows[0].Price))
			b.WriteString(fieldLabelStyle.Render("Last change:"))
			b.WriteString(" " + renderChange(change) + "\n\n")
		}
		b.WriteString(format.PriceHistory(m.detailRows))
	}

	b.WriteString("\n" + helpStyle.Render("Esc/b back to the list") + "\n")
	return b.String()
}
