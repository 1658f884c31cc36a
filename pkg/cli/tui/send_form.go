package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"
	"price-tracker-go/pkg/utils"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type sendField struct {
	label    string
	required bool
	input    textinput.Model
}

const (
	fieldStore = iota
	fieldProduct
	fieldVariant
	fieldBrand
	fieldCategory
	fieldPrice
	fieldCurrency
	fieldPromo
	fieldUPC
	fieldSKU
	fieldStoreURL
	fieldProductURL
)

// sendForm collects one scraped observation and registers it through the
// Sender, showing each resolution step as it happens.
type sendForm struct {
	deps    Dependencies
	fields  []sendField
	focused int

	sending  bool
	updates  chan sendUpdateMsg
	cancel   context.CancelFunc
	spinner  spinner.Model
	state    services.SendState
	feedback string
	err      error
	done     bool
}

type sendUpdateMsg struct {
	state    services.SendState
	feedback string
}

type sendDoneMsg struct {
	state    services.SendState
	feedback string
	err      error
}

func newSendForm(deps Dependencies) *sendForm {
	defs := []struct {
		label       string
		placeholder string
		required    bool
	}{
		fieldStore:      {"Store", "Walmart", true},
		fieldProduct:    {"Product", "Coca-Cola Sin Azúcar", true},
		fieldVariant:    {"Variant", "600 ml", false},
		fieldBrand:      {"Brand", services.DefaultBrand, false},
		fieldCategory:   {"Category", services.DefaultCategory, false},
		fieldPrice:      {"Price", "18.50", true},
		fieldCurrency:   {"Currency", models.DefaultCurrency, false},
		fieldPromo:      {"Promo label", "2x1", false},
		fieldUPC:        {"UPC", "", false},
		fieldSKU:        {"SKU", "", false},
		fieldStoreURL:   {"Store URL", "https://www.walmart.com.mx", false},
		fieldProductURL: {"Product URL", "https://...", false},
	}

	fields := make([]sendField, len(defs))
	for i, def := range defs {
		input := textinput.New()
		input.Placeholder = def.placeholder
		input.CharLimit = 2048
		input.Width = 50
		fields[i] = sendField{label: def.label, required: def.required, input: input}
	}
	fields[0].input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	return &sendForm{
		deps:    deps,
		fields:  fields,
		spinner: sp,
		state:   services.SendIdle,
	}
}

func (m *sendForm) Init() tea.Cmd {
	return textinput.Blink
}

func (m *sendForm) value(field int) string {
	return strings.TrimSpace(m.fields[field].input.Value())
}

// payload builds the observation from the form. A blank price stays nil so
// the Sender reports it as missing.
func (m *sendForm) payload() (models.ScrapingDataPayload, error) {
	p := models.ScrapingDataPayload{
		Store:      m.value(fieldStore),
		Product:    m.value(fieldProduct),
		Variant:    m.value(fieldVariant),
		Brand:      m.value(fieldBrand),
		Category:   m.value(fieldCategory),
		Currency:   m.value(fieldCurrency),
		PromoLabel: m.value(fieldPromo),
		UPC:        m.value(fieldUPC),
		SKU:        m.value(fieldSKU),
		StoreURL:   m.value(fieldStoreURL),
		ProductURL: m.value(fieldProductURL),
	}
	if raw := m.value(fieldPrice); raw != "" {
		price, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return p, fmt.Errorf("invalid price %q", raw)
		}
		p.Price = &price
	}
	for _, u := range []*string{&p.StoreURL, &p.ProductURL} {
		v, err := utils.OptionalURL(*u)
		if err != nil {
			return p, err
		}
		*u = v
	}
	return p, nil
}

func (m *sendForm) focus(i int) tea.Cmd {
	m.fields[m.focused].input.Blur()
	m.focused = (i + len(m.fields)) % len(m.fields)
	return m.fields[m.focused].input.Focus()
}

func (m *sendForm) submit() tea.Cmd {
	payload, err := m.payload()
	if err != nil {
		m.err = err
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan sendUpdateMsg, 16)
	sender := m.deps.NewSender(func(state services.SendState, feedback string) {
		select {
		case updates <- sendUpdateMsg{state: state, feedback: feedback}:
		default:
		}
	})

	m.sending = true
	m.err = nil
	m.updates = updates
	m.cancel = cancel

	run := func() tea.Msg {
		defer cancel()
		err := sender.Send(ctx, payload)
		close(updates)
		state, feedback := sender.Status()
		return sendDoneMsg{state: state, feedback: feedback, err: err}
	}
	return tea.Batch(run, listenSend(updates), m.spinner.Tick)
}

func listenSend(updates <-chan sendUpdateMsg) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return u
	}
}

func (m *sendForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sendUpdateMsg:
		if !m.sending {
			return m, nil
		}
		m.state, m.feedback = msg.state, msg.feedback
		return m, listenSend(m.updates)

	case sendDoneMsg:
		m.sending = false
		m.done = true
		m.err = msg.err
		m.state, m.feedback = msg.state, msg.feedback
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MenuNavigationMsg:
		if m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.sending || m.done {
		return m, nil
	}
	var cmd tea.Cmd
	m.fields[m.focused].input, cmd = m.fields[m.focused].input.Update(msg)
	return m, cmd
}

func (m *sendForm) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	if m.sending {
		if key == "esc" {
			m.cancel()
		}
		return m, nil
	}

	if m.done {
		switch key {
		case "n":
			// Keep store/category/brand so the next product from the same
			// session is quicker to enter.
			for _, i := range []int{fieldProduct, fieldVariant, fieldPrice, fieldPromo, fieldUPC, fieldSKU, fieldProductURL} {
				m.fields[i].input.SetValue("")
			}
			m.done = false
			m.err = nil
			m.state, m.feedback = services.SendIdle, ""
			return m, m.focus(fieldProduct)
		case "r":
			if m.err != nil {
				m.done = false
				return m, m.submit()
			}
		}
		return m, backToMenu
	}

	switch key {
	case "esc":
		return m, backToMenu
	case "tab", "down":
		return m, m.focus(m.focused + 1)
	case "shift+tab", "up":
		return m, m.focus(m.focused - 1)
	case "ctrl+s":
		return m, m.submit()
	case "enter":
		if m.focused == len(m.fields)-1 {
			return m, m.submit()
		}
		return m, m.focus(m.focused + 1)
	}

	var cmd tea.Cmd
	m.fields[m.focused].input, cmd = m.fields[m.focused].input.Update(msg)
	return m, cmd
}

func (m *sendForm) View() string {
	var b strings.Builder
	b.WriteString(renderTitle("Register Scraped Price"))

	if m.sending || m.done {
		b.WriteString(m.statusView())
		return b.String()
	}

	for i, f := range m.fields {
		label := f.label
		if f.required {
			label += " *"
		}
		marker := "  "
		if i == m.focused {
			marker = selectedMarkerStyle.Render("→ ")
		}
		b.WriteString(fmt.Sprintf("%s%s\n  %s\n", marker, fieldLabelStyle.Render(label), f.input.View()))
	}

	if m.err != nil {
		b.WriteString("\n" + renderInlineError(m.err) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("Tab/↑↓ move • Enter next • Ctrl+S send • Esc menu") + "\n")
	return b.String()
}

func (m *sendForm) statusView() string {
	var b strings.Builder
	b.WriteString(fieldLabelStyle.Render("Step:"))
	b.WriteString(fmt.Sprintf(" %s\n\n", m.state))

	switch {
	case m.sending:
		b.WriteString(m.spinner.View() + " " + infoStyle.Render(m.feedback) + "\n\n")
		b.WriteString(helpStyle.Render("Press Esc to cancel.") + "\n")
	case m.err != nil:
		if m.feedback != "" {
			b.WriteString(renderError(m.feedback) + "\n\n")
		} else {
			b.WriteString(renderInlineError(m.err) + "\n\n")
		}
		b.WriteString(helpStyle.Render("Press 'r' to retry, any other key to return to the menu.") + "\n")
	default:
		b.WriteString(renderSuccess(m.feedback) + "\n\n")
		b.WriteString(helpStyle.Render("Press 'n' for another product, any other key to return to the menu.") + "\n")
	}
	return b.String()
}
