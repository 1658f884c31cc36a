package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"
)

// ListPriceHistory lists price rows, filtered by id_producto and limit
func ListPriceHistory(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := intQuery(c, "id_producto")
		if !ok {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}

		entries, err := service.ListPriceHistory(c.Request.Context(), models.PriceHistoryFilter{
			ProductID: productID,
			Limit:     limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, entries)
	}
}

// AddPriceHistory appends a price row
func AddPriceHistory(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var entry models.PriceHistoryCreate
		if err := c.ShouldBindJSON(&entry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := service.AddPriceHistory(c.Request.Context(), entry)
		if err != nil {
			respondError(c, err)
			return
		}

		created(c, "price recorded", id)
	}
}

// CurrentPrice returns the newest price row for a product
func CurrentPrice(service *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}

		entry, err := service.CurrentPrice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, entry)
	}
}
