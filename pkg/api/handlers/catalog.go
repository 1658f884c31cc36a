package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"
)

// ListStores lists stores, filtered by nombre, id_tienda or codigo_pais
func ListStores(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intQuery(c, "id_tienda")
		if !ok {
			return
		}

		stores, err := service.ListStores(c.Request.Context(), models.StoreFilter{
			Name:        c.Query("nombre"),
			ID:          id,
			CountryCode: c.Query("codigo_pais"),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, stores)
	}
}

// CreateStore creates a new store
func CreateStore(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var store models.StoreCreate
		if err := c.ShouldBindJSON(&store); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := service.CreateStore(c.Request.Context(), store)
		if err != nil {
			respondError(c, err)
			return
		}

		created(c, "store created", id)
	}
}

// ListCategories lists categories, optionally by nombre
func ListCategories(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := service.ListCategories(c.Request.Context(), models.NameFilter{Name: c.Query("nombre")})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, categories)
	}
}

// CreateCategory creates a new category
func CreateCategory(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NameCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := service.CreateCategory(c.Request.Context(), req.Name)
		if err != nil {
			respondError(c, err)
			return
		}

		created(c, "category created", id)
	}
}

// ListBrands lists brands, optionally by nombre
func ListBrands(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		brands, err := service.ListBrands(c.Request.Context(), models.NameFilter{Name: c.Query("nombre")})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, brands)
	}
}

// CreateBrand creates a new brand
func CreateBrand(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NameCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := service.CreateBrand(c.Request.Context(), req.Name)
		if err != nil {
			respondError(c, err)
			return
		}

		created(c, "brand created", id)
	}
}

// ListProducts lists products, filtered by id_producto, id_tienda or nombre
func ListProducts(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intQuery(c, "id_producto")
		if !ok {
			return
		}
		storeID, ok := intQuery(c, "id_tienda")
		if !ok {
			return
		}

		products, err := service.ListProducts(c.Request.Context(), models.ProductFilter{
			ID:      id,
			StoreID: storeID,
			Name:    c.Query("nombre"),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

// GetProduct retrieves a single product
func GetProduct(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}

		product, err := service.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

// CreateProduct creates a product or updates the matching one
func CreateProduct(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.ProductCreate
		if err := c.ShouldBindJSON(&product); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, isNew, err := service.CreateProduct(c.Request.Context(), product)
		if err != nil {
			respondError(c, err)
			return
		}

		if !isNew {
			c.JSON(http.StatusOK, gin.H{"message": "product updated", "id": id})
			return
		}
		created(c, "product created", id)
	}
}
