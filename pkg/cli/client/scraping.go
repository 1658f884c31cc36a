package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"price-tracker-go/pkg/models"
)

// StartPriceScrape asks the backend to start an asynchronous scraping task
// for a product
func (c *Client) StartPriceScrape(ctx context.Context, productID int, req models.ScrapeStartRequest) (*models.ScrapeStartResponse, error) {
	var resp models.ScrapeStartResponse
	path := fmt.Sprintf("/productos/%d/scraping-precio", productID)
	if err := c.doJSONRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScrapeStatus retrieves the current status of a scraping task
func (c *Client) ScrapeStatus(ctx context.Context, taskID string) (*models.ScrapeStatusResponse, error) {
	var resp models.ScrapeStatusResponse
	path := "/scraping/estado/" + url.PathEscape(taskID)
	if err := c.doGetRequest(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
