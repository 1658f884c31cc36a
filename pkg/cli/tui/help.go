package tui

import (
	"fmt"
	"strings"
)

// HelpItem represents a single keyboard shortcut and its description
type HelpItem struct {
	Key         string
	Description string
}

// SendFormHelpContent returns help for the send form
func SendFormHelpContent() string {
	items := []HelpItem{
		{"Tab / ↓", "Next field"},
		{"Shift+Tab / ↑", "Previous field"},
		{"Enter", "Next field / Send (last field)"},
		{"Ctrl+S", "Send"},
		{"Esc", "Return to menu"},
	}
	return renderHelpItems(items)
}

// ScrapeHelpContent returns help for the scrape flow
func ScrapeHelpContent() string {
	items := []HelpItem{
		{"↑ / ↓ / j / k", "Navigate product list"},
		{"Enter", "Scrape selected product"},
		{"f", "Scrape ignoring cached prices"},
		{"Esc", "Stop polling / Return to menu"},
	}
	return renderHelpItems(items)
}

// HistoryHelpContent returns help for the price history list
func HistoryHelpContent() string {
	items := []HelpItem{
		{"↑ / ↓ / j / k", "Navigate products"},
		{"Enter", "Show price rows for product"},
		{"r", "Reload"},
		{"Esc / b", "Go back"},
	}
	return renderHelpItems(items)
}

// renderHelpItems formats help items into a readable string
func renderHelpItems(items []HelpItem) string {
	var b strings.Builder
	keyStyle := boldStyle.Foreground(colorPrimary)
	for _, item := range items {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			keyStyle.Render(item.Key),
			item.Description))
	}
	return b.String()
}
