package models

import (
	"fmt"
	"math"
)

// DefaultCurrency is used when a price observation carries no currency.
const DefaultCurrency = "MXN"

// PriceHistoryEntry corresponds to the "historial_precio" table. The client
// only ever appends rows.
type PriceHistoryEntry struct {
	ID         int       `db:"id_precio" json:"id_precio"`
	ProductID  int       `db:"id_producto" json:"id_producto"`
	Price      float64   `db:"precio" json:"precio"`
	Currency   string    `db:"moneda" json:"moneda"`
	PromoLabel *string   `db:"etiqueta_promo" json:"etiqueta_promo,omitempty"`
	CapturedAt Timestamp `db:"capturado_en" json:"capturado_en"`
}

func (e *PriceHistoryEntry) Validate() error {
	if e.ProductID <= 0 {
		return fmt.Errorf("price entry %d has no product", e.ID)
	}
	if math.IsNaN(e.Price) || math.IsInf(e.Price, 0) {
		return fmt.Errorf("price entry %d has a non-finite price", e.ID)
	}
	return nil
}

// PriceHistoryCreate is the payload for appending a price row.
type PriceHistoryCreate struct {
	ProductID  int     `json:"id_producto" binding:"required"`
	Price      float64 `json:"precio"`
	Currency   string  `json:"moneda,omitempty"`
	PromoLabel *string `json:"etiqueta_promo,omitempty"`
}

// PriceHistoryFilter narrows a price history listing. Limit 0 means the
// backend default.
type PriceHistoryFilter struct {
	ProductID int
	Limit     int
}

// HistoryEntry joins a product with its most recent price row.
type HistoryEntry struct {
	PriceID    int       `json:"id"`
	ProductID  int       `json:"id_producto"`
	Store      string    `json:"comercio"`
	Category   string    `json:"categoria"`
	Product    string    `json:"producto"`
	UPC        *string   `json:"upc"`
	SKU        *string   `json:"sku"`
	Price      float64   `json:"precio"`
	Currency   string    `json:"moneda"`
	CapturedAt Timestamp `json:"capturado_en"`
}
