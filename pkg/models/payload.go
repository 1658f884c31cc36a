package models

// ScrapingDataPayload is one flat, denormalized product observation as
// captured by a scraping session. It is never persisted as-is.
type ScrapingDataPayload struct {
	Store      string `json:"comercio"`
	Product    string `json:"producto"`
	Variant    string `json:"variante"`
	Brand      string `json:"marca,omitempty"`
	Category   string `json:"categoria,omitempty"`
	Flavor     string `json:"sabor,omitempty"`
	SKU        string `json:"sku,omitempty"`
	UPC        string `json:"upc,omitempty"`
	Unit       string `json:"unidadMedida,omitempty"`
	StoreURL   string `json:"urlComercio,omitempty"`
	ProductURL string `json:"urlProducto,omitempty"`

	// Price is a pointer so that an explicit zero is distinguishable from
	// a missing value.
	Price      *float64 `json:"precio"`
	Currency   string   `json:"moneda,omitempty"`
	PromoLabel string   `json:"etiqueta_promo,omitempty"`
}
