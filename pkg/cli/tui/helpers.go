package tui

import (
	"errors"
	"fmt"
	"strings"

	"price-tracker-go/pkg/cli/format"
	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/scraper"
	"price-tracker-go/pkg/services"
)

// renderErrorView renders a standard error view with a return hint
func renderErrorView(err error) string {
	return "\n" + renderError(fmt.Sprintf("Error: %v", userFacingError(err))) + "\n\n" +
		helpStyle.Render("Press any key to return to the menu...") + "\n"
}

// renderEmptyState renders a standard empty state message
func renderEmptyState(message string) string {
	return "\n" + mutedStyle.Render(message) + "\n\n" +
		helpStyle.Render("Press any key to return to the menu...") + "\n"
}

// renderLoadingState renders a standard loading message
func renderLoadingState(message string) string {
	return "\n" + infoStyle.Render(message) + "\n"
}

// renderProductList renders a selectable list of products with navigation markers
func renderProductList(products []models.Product, selected int, title string, subtitle string) string {
	if len(products) == 0 {
		return renderEmptyState("No products found.")
	}

	var b strings.Builder
	b.WriteString(renderTitle(title))
	if subtitle != "" {
		b.WriteString(boldStyle.Render(subtitle) + "\n\n")
	}

	for i, p := range products {
		marker := " "
		style := productNameStyle
		if i == selected {
			marker = selectedMarkerStyle.Render("→")
			style = selectedStyle
		}

		b.WriteString(fmt.Sprintf("%s %s\n", marker, style.Render(format.Truncate(p.Name, 60))))
		b.WriteString(fmt.Sprintf("  %s\n", productMetaStyle.Render(productMeta(p))))
	}

	b.WriteString("\n")
	return b.String()
}

func productMeta(p models.Product) string {
	parts := []string{fmt.Sprintf("#%d", p.ID), p.StoreName}
	if p.BrandName != "" {
		parts = append(parts, p.BrandName)
	}
	if p.URL == nil || *p.URL == "" {
		parts = append(parts, "no URL")
	}
	return strings.Join(parts, " · ")
}

// renderChange renders a price change with a colored difference
func renderChange(c services.PriceChange) string {
	if !c.HasPrevious() {
		return mutedStyle.Render("no previous price")
	}
	diff := c.Difference.StringFixed(2)
	pct := c.PercentChange.StringFixed(2) + "%"
	switch {
	case c.Difference.IsPositive():
		return priceRiseStyle.Render(fmt.Sprintf("▲ +%s (+%s)", diff, pct))
	case c.Difference.IsNegative():
		return priceDropStyle.Render(fmt.Sprintf("▼ %s (%s)", diff, pct))
	default:
		return mutedStyle.Render("unchanged")
	}
}

// handleListNavigation handles common navigation keys for list views (up/down/j/k)
// Returns the new selected index and whether navigation occurred
func handleListNavigation(key string, selected int, total int) (newSelected int, handled bool) {
	switch key {
	case "up", "k":
		if selected > 0 {
			return selected - 1, true
		}
		return selected, true
	case "down", "j":
		if selected < total-1 {
			return selected + 1, true
		}
		return selected, true
	}
	return selected, false
}

// renderInlineError renders an error message inline (without full error view formatting)
func renderInlineError(err error) string {
	if err == nil {
		return ""
	}
	return renderError(userFacingError(err).Error())
}

// userFacingError converts structured scraper and sender errors into
// friendly messages, while leaving other error types unchanged.
func userFacingError(err error) error {
	if err == nil {
		return nil
	}

	var scraperErr *scraper.ScraperError
	if errors.As(err, &scraperErr) {
		return errors.New(scraperErr.UserMessage())
	}
	if errors.Is(err, scraper.ErrStopped) {
		return errors.New("scraping was cancelled")
	}

	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return errors.New(validationErr.Message)
	}

	return err
}
