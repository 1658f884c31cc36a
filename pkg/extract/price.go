package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// ErrPriceNotFound is returned when no strategy finds a price on the page.
var ErrPriceNotFound = errors.New("price not found on page")

var numberPattern = regexp.MustCompile(`\d[\d.,]*`)

// fallbackSelectors are tried in order after structured data
var fallbackSelectors = []string{
	"[data-price]",
	".product-price",
	".price",
	"#price",
	".precio",
}

// ParsePrice turns currency text such as "$1,299.00", "MXN 39.90" or
// "1.299,00 €" into a decimal.
func ParsePrice(text string) (decimal.Decimal, error) {
	raw := strings.TrimRight(numberPattern.FindString(text), ".,")
	if raw == "" {
		return decimal.Zero, fmt.Errorf("no number in %q", text)
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") == 1 && len(raw)-lastComma-1 <= 2 {
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(raw, ".") > 1 {
			raw = strings.ReplaceAll(raw, ".", "")
		}
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", text, err)
	}
	return price, nil
}

// ExtractPrice finds a product price in an HTML page. Open Graph metadata,
// microdata and JSON-LD offers are preferred over CSS class guesses.
func ExtractPrice(html []byte) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse html: %w", err)
	}

	candidates := []string{
		attr(doc.Find(`meta[property="product:price:amount"]`), "content"),
		attr(doc.Find(`meta[itemprop="price"]`), "content"),
		itemprop(doc),
		jsonLDPrice(doc),
	}
	for _, sel := range fallbackSelectors {
		s := doc.Find(sel).First()
		if v, ok := s.Attr("data-price"); ok {
			candidates = append(candidates, v)
		}
		candidates = append(candidates, strings.TrimSpace(s.Text()))
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if price, err := ParsePrice(c); err == nil && price.IsPositive() {
			return price, nil
		}
	}
	return decimal.Zero, ErrPriceNotFound
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.First().Attr(name)
	return strings.TrimSpace(v)
}

func itemprop(doc *goquery.Document) string {
	s := doc.Find(`[itemprop="price"]`).First()
	if v, ok := s.Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.Text())
}

func jsonLDPrice(doc *goquery.Document) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findOfferPrice(data)
		return found == ""
	})
	return found
}

// findOfferPrice walks JSON-LD looking for offers.price or offers.lowPrice
func findOfferPrice(v any) string {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if p := findOfferPrice(item); p != "" {
				return p
			}
		}
	case map[string]any:
		if offers, ok := node["offers"]; ok {
			if p := offerPrice(offers); p != "" {
				return p
			}
		}
		if graph, ok := node["@graph"]; ok {
			return findOfferPrice(graph)
		}
	}
	return ""
}

func offerPrice(offers any) string {
	switch o := offers.(type) {
	case []any:
		for _, item := range o {
			if p := offerPrice(item); p != "" {
				return p
			}
		}
	case map[string]any:
		for _, key := range []string{"price", "lowPrice"} {
			switch p := o[key].(type) {
			case string:
				if p != "" {
					return p
				}
			case float64:
				return decimal.NewFromFloat(p).String()
			}
		}
	}
	return ""
}
