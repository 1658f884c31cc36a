package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"price-tracker-go/pkg/models"
	"price-tracker-go/pkg/services"
)

// StartScrape starts an asynchronous price scrape for a product
func StartScrape(tasks *services.ScrapeTaskManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}

		// The body is optional
		var req models.ScrapeStartRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := tasks.Start(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, resp)
	}
}

// ScrapeStatus reports the state of a scraping task
func ScrapeStatus(tasks *services.ScrapeTaskManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := tasks.Status(c.Param("tarea_id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}
