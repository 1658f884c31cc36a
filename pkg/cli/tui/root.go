package tui

import (
	"context"
	"fmt"
	"strings"

	"price-tracker-go/pkg/cli/logger"
	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/scraper"
	"price-tracker-go/pkg/services"
	"price-tracker-go/pkg/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Catalog is the read side of the backend the flows browse.
type Catalog interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	ListPriceHistory(ctx context.Context, filter models.PriceHistoryFilter) ([]models.PriceHistoryEntry, error)
}

// Dependencies are shared by every flow.
type Dependencies struct {
	Client        Catalog
	Session       *session.Manager
	NewPoller     func(onUpdate func(scraper.Snapshot)) *scraper.Poller
	NewSender     func(onUpdate func(services.SendState, string)) *services.Sender
	ScrapeOptions func(force bool) scraper.StartOptions
}

// MenuNavigationMsg asks the root model to return to the main menu.
type MenuNavigationMsg struct{}

func backToMenu() tea.Msg {
	return MenuNavigationMsg{}
}

// rootModel is the Bubble Tea model that acts as an app shell for multiple flows.
// It presents a simple menu and then hands control to a specific flow model.
type rootModel struct {
	deps Dependencies

	// Current active flow (when nil, we are in the main menu)
	current tea.Model
	width   int
	height  int
}

// NewRootModel constructs the root app-shell model that can launch multiple flows.
func NewRootModel(deps Dependencies) tea.Model {
	return &rootModel{deps: deps}
}

// IsDelegating reports whether a flow owns the screen.
func (m *rootModel) IsDelegating() bool {
	return m.current != nil
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

func (m *rootModel) start(flow tea.Model) (tea.Model, tea.Cmd) {
	m.current = flow
	cmds := []tea.Cmd{flow.Init()}
	if m.width > 0 {
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		cmds = append(cmds, func() tea.Msg { return size })
	}
	return m, tea.Batch(cmds...)
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case MenuNavigationMsg:
		logger.Log("rootModel.Update: returning to menu from %T", m.current)
		if m.current != nil {
			// Let the flow cancel any work it still has running.
			m.current.Update(msg)
		}
		m.current = nil
		return m, nil
	}

	// If we have an active flow, delegate all messages to it.
	if m.current != nil {
		var cmd tea.Cmd
		m.current, cmd = m.current.Update(msg)
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "1":
			return m.start(newSendForm(m.deps))
		case "2":
			return m.start(newScrapeFlow(m.deps))
		case "3":
			return m.start(newHistoryList(m.deps))
		case "l":
			if err := m.deps.Session.Logout(); err != nil {
				logger.LogError(err, "logout failed")
			}
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *rootModel) View() string {
	// When a flow is active, defer to its view.
	if m.current != nil {
		return m.current.View()
	}

	var b strings.Builder

	b.WriteString(renderTitle("Price Tracker"))
	if s, err := m.deps.Session.Current(); err == nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Logged in as %s", s.Email)) + "\n")
	}
	b.WriteString(renderDivider(60))
	b.WriteString("\n\n")
	b.WriteString(boldStyle.Render("Select an action:") + "\n\n")
	b.WriteString("  " + selectedMarkerStyle.Render("1)") + " Register a scraped price\n")
	b.WriteString("  " + selectedMarkerStyle.Render("2)") + " Scrape a product price\n")
	b.WriteString("  " + selectedMarkerStyle.Render("3)") + " Price history\n")
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press the number of an option, 'l' to log out, or 'q' / Esc to quit.") + "\n")

	return b.String()
}
