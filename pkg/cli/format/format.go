package format

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"
)

const dateLayout = "2006-01-02 15:04"

// Truncate shortens s to maxLen runes, adding an ellipsis if truncated
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// Date formats a capture time as a readable date string
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

// Money formats a price with its currency
func Money(price float64, currency string) string {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}

func divider(widths ...int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w)
	}
	return strings.Join(parts, "\t")
}

// Stores renders stores as a table
func Stores(stores []models.Store) string {
	if len(stores) == 0 {
		return "No stores found.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tURL\tCountry")
	fmt.Fprintln(w, divider(4, 20, 40, 7))
	for _, s := range stores {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, Truncate(s.Name, 20), Truncate(s.BaseURL, 40), s.CountryCode)
	}
	w.Flush()
	fmt.Fprintf(&b, "\nTotal: %d store(s)\n", len(stores))
	return b.String()
}

// Products renders products with their joined names as a table
func Products(products []models.Product) string {
	if len(products) == 0 {
		return "No products found.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tProduct\tStore\tCategory\tBrand\tVolume")
	fmt.Fprintln(w, divider(4, 40, 16, 16, 16, 8))
	for _, p := range products {
		volume := "-"
		if p.VolumeML != nil {
			volume = fmt.Sprintf("%d ml", *p.VolumeML)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			Truncate(p.Name, 40),
			Truncate(p.StoreName, 16),
			Truncate(p.CategoryName, 16),
			Truncate(p.BrandName, 16),
			volume,
		)
	}
	w.Flush()
	fmt.Fprintf(&b, "\nTotal: %d product(s)\n", len(products))
	return b.String()
}

// PriceHistory renders raw price rows for a single product
func PriceHistory(rows []models.PriceHistoryEntry) string {
	if len(rows) == 0 {
		return "No price history found.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPrice\tPromo\tCaptured")
	fmt.Fprintln(w, divider(6, 14, 20, 16))
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, Money(r.Price, r.Currency), Truncate(models.Deref(r.PromoLabel, "-"), 20), Date(r.CapturedAt.Time))
	}
	w.Flush()
	return b.String()
}

// HistoryList renders the latest price per product
func HistoryList(entries []models.HistoryEntry) string {
	if len(entries) == 0 {
		return "No price history found.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Product\tStore\tCategory\tUPC/SKU\tPrice\tCaptured")
	fmt.Fprintln(w, divider(36, 16, 16, 14, 14, 16))
	for _, e := range entries {
		code := models.Deref(e.UPC, models.Deref(e.SKU, "-"))
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			Truncate(e.Product, 36),
			Truncate(e.Store, 16),
			Truncate(e.Category, 16),
			code,
			Money(e.Price, e.Currency),
			Date(e.CapturedAt.Time),
		)
	}
	w.Flush()
	fmt.Fprintf(&b, "\nTotal: %d product(s)\n", len(entries))
	return b.String()
}

// PriceChange describes a refresh result in one or two lines
func PriceChange(c *services.PriceChange) string {
	if c == nil {
		return ""
	}
	current := c.Current.StringFixed(2)
	if !c.HasPrevious() {
		return fmt.Sprintf("Current price: %s (no previous price)\n", current)
	}

	sign := ""
	if c.Difference.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("Current price: %s\nPrevious: %.2f  Change: %s%s (%s%s%%)\n",
		current,
		c.Previous.Price,
		sign, c.Difference.StringFixed(2),
		sign, c.PercentChange.StringFixed(2),
	)
}

// Error formats an error message consistently
func Error(err error) string {
	return fmt.Sprintf("❌ Error: %v\n", err)
}
