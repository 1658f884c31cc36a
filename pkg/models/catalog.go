package models

import (
	"fmt"
	"strings"
)

// Store corresponds to the backend "tienda" table.
type Store struct {
	ID          int    `db:"id_tienda" json:"id_tienda"`
	Name        string `db:"nombre" json:"nombre"`
	BaseURL     string `db:"url_base" json:"url_base"`
	CountryCode string `db:"codigo_pais" json:"codigo_pais,omitempty"`
}

// StoreCreate represents data for creating a new store
type StoreCreate struct {
	Name        string `json:"nombre" binding:"required"`
	BaseURL     string `json:"url_base"`
	CountryCode string `json:"codigo_pais,omitempty"`
}

// Category corresponds to the backend "categoria" table.
type Category struct {
	ID   int    `db:"id_categoria" json:"id_categoria"`
	Name string `db:"nombre" json:"nombre"`
}

// Brand corresponds to the backend "marca" table.
type Brand struct {
	ID   int    `db:"id_marca" json:"id_marca"`
	Name string `db:"nombre" json:"nombre"`
}

// NameCreate is the create payload shared by categories and brands.
type NameCreate struct {
	Name string `json:"nombre" binding:"required"`
}

// Created is returned by every create endpoint.
type Created struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

func (c *Created) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("missing id in create response")
	}
	return nil
}

// Product corresponds to the "producto" table, enriched with the joined
// store, category and brand names.
type Product struct {
	ID           int       `db:"id_producto" json:"id_producto"`
	StoreID      int       `db:"id_tienda" json:"id_tienda"`
	CategoryID   int       `db:"id_categoria" json:"id_categoria"`
	BrandID      int       `db:"id_marca" json:"id_marca"`
	Name         string    `db:"nombre" json:"nombre"`
	Flavor       *string   `db:"sabor" json:"sabor,omitempty"`
	VolumeML     *int      `db:"volumen_ml" json:"volumen_ml,omitempty"`
	UPC          *string   `db:"upc" json:"upc,omitempty"`
	SKU          *string   `db:"sku" json:"sku,omitempty"`
	URL          *string   `db:"url_producto" json:"url_producto,omitempty"`
	CreatedAt    Timestamp `db:"creado_en" json:"creado_en"`
	StoreName    string    `json:"nombre_tienda"`
	CategoryName string    `json:"nombre_categoria"`
	BrandName    string    `json:"nombre_marca"`
}

// ProductCreate represents data for creating (or updating, by backend
// convention) a product.
type ProductCreate struct {
	StoreID    int     `json:"id_tienda" binding:"required"`
	CategoryID int     `json:"id_categoria" binding:"required"`
	BrandID    int     `json:"id_marca" binding:"required"`
	Name       string  `json:"nombre" binding:"required"`
	Flavor     *string `json:"sabor,omitempty"`
	VolumeML   *int    `json:"volumen_ml,omitempty"`
	UPC        *string `json:"upc,omitempty"`
	SKU        *string `json:"sku,omitempty"`
	URL        *string `json:"url_producto,omitempty"`
}

// StoreFilter narrows a store listing. Zero values are ignored.
type StoreFilter struct {
	Name        string
	ID          int
	CountryCode string
}

// NameFilter narrows category and brand listings.
type NameFilter struct {
	Name string
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	ID      int
	StoreID int
	Name    string
}

// StringOrNil returns nil for blank strings.
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or fallback.
func Deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
