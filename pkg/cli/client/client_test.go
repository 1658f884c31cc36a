package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"price-tracker-go/pkg/models"

	"github.com/jarcoal/httpmock"
)

const testBaseURL = "http://api.test/api"

func newMockedClient(t *testing.T, apiKey string) (*Client, *httpmock.MockTransport) {
	t.Helper()
	c := NewClient(testBaseURL+"/", apiKey)
	transport := httpmock.NewMockTransport()
	c.httpClient.Transport = transport
	return c, transport
}

func TestAPIErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{name: "error field wins", status: 400, body: `{"error":"bad name","message":"ignored"}`, expected: "bad name"},
		{name: "message field", status: 409, body: `{"message":"already exists"}`, expected: "already exists"},
		{name: "raw text", status: 502, body: "upstream down", expected: "upstream down"},
		{name: "empty body", status: 500, body: "", expected: "HTTP error 500"},
		{name: "json without message", status: 503, body: `{"detail":"x"}`, expected: "HTTP error 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport := newMockedClient(t, "")
			transport.RegisterResponder("GET", testBaseURL+"/tiendas", httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.ListStores(context.Background(), models.StoreFilter{})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.expected {
				t.Fatalf("got (%d, %q), want (%d, %q)", apiErr.StatusCode, apiErr.Message, tt.status, tt.expected)
			}
		})
	}
}

func TestListStoresSendsFiltersAndAuth(t *testing.T) {
	c, transport := newMockedClient(t, "secret")

	var gotReq *http.Request
	transport.RegisterResponder("GET", testBaseURL+"/tiendas", func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return httpmock.NewJsonResponse(200, []models.Store{{ID: 7, Name: "Walmart", BaseURL: "https://walmart.com.mx"}})
	})

	stores, err := c.ListStores(context.Background(), models.StoreFilter{Name: "Walmart", CountryCode: "MX"})
	if err != nil {
		t.Fatalf("list stores: %v", err)
	}
	if len(stores) != 1 || stores[0].ID != 7 {
		t.Fatalf("stores = %+v", stores)
	}

	q := gotReq.URL.Query()
	if q.Get("nombre") != "Walmart" || q.Get("codigo_pais") != "MX" || q.Has("id_tienda") {
		t.Fatalf("query = %v", q)
	}
	if got := gotReq.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestNoAuthHeaderWithoutKey(t *testing.T) {
	c, transport := newMockedClient(t, "")
	transport.RegisterResponder("GET", testBaseURL+"/health", func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "" {
			t.Errorf("unexpected authorization header")
		}
		return httpmock.NewStringResponse(200, `{"status":"ok"}`), nil
	})

	if err := c.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestCreateStorePostsJSON(t *testing.T) {
	c, transport := newMockedClient(t, "")
	transport.RegisterResponder("POST", testBaseURL+"/tiendas", func(req *http.Request) (*http.Response, error) {
		var body models.StoreCreate
		if err := decodeBody(req, &body); err != nil {
			return nil, err
		}
		if body.Name != "Soriana" || body.CountryCode != "MX" {
			t.Errorf("body = %+v", body)
		}
		return httpmock.NewJsonResponse(201, models.Created{Message: "created", ID: 3})
	})

	created, err := c.CreateStore(context.Background(), models.StoreCreate{Name: "Soriana", BaseURL: "http://soriana.com", CountryCode: "MX"})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if created.ID != 3 {
		t.Fatalf("id = %d", created.ID)
	}
}

func TestCreateResponseWithoutIDIsDecodeError(t *testing.T) {
	c, transport := newMockedClient(t, "")
	transport.RegisterResponder("POST", testBaseURL+"/marcas", httpmock.NewStringResponder(201, `{"message":"ok"}`))

	_, err := c.CreateBrand(context.Background(), "Coca-Cola")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decodeErr.Endpoint != "POST /api/marcas" {
		t.Fatalf("endpoint = %q", decodeErr.Endpoint)
	}
}

func TestScrapeStatusRejectsUnknownStatus(t *testing.T) {
	c, transport := newMockedClient(t, "")
	transport.RegisterResponder("GET", testBaseURL+"/scraping/estado/abc", httpmock.NewStringResponder(200, `{"estado":"PAUSADO"}`))

	_, err := c.ScrapeStatus(context.Background(), "abc")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
}

func TestStartPriceScrape(t *testing.T) {
	c, transport := newMockedClient(t, "")
	transport.RegisterResponder("POST", testBaseURL+"/productos/12/scraping-precio", func(req *http.Request) (*http.Response, error) {
		var body map[string]any
		if err := decodeBody(req, &body); err != nil {
			return nil, err
		}
		if body["forzar_actualizacion"] != true {
			t.Errorf("body = %v", body)
		}
		return httpmock.NewStringResponse(202, `{"tarea_id":"t-1","estado":"INICIADO","mensaje":"queued"}`), nil
	})

	force := true
	resp, err := c.StartPriceScrape(context.Background(), 12, models.ScrapeStartRequest{ForceRefresh: &force})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.TaskID != "t-1" || resp.Status != models.TaskStarted {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestListPriceHistoryAndGetProduct(t *testing.T) {
	c, transport := newMockedClient(t, "")
	transport.RegisterResponder("GET", testBaseURL+"/historial-precios", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("id_producto") != "5" || req.URL.Query().Get("limit") != "1" {
			t.Errorf("query = %v", req.URL.Query())
		}
		return httpmock.NewStringResponse(200, `[{"id_precio":9,"id_producto":5,"precio":39.9,"moneda":"MXN","capturado_en":"2024-05-01 10:00:00"}]`), nil
	})
	transport.RegisterResponder("GET", testBaseURL+"/productos", httpmock.NewStringResponder(200, `[]`))

	entries, err := c.ListPriceHistory(context.Background(), models.PriceHistoryFilter{ProductID: 5, Limit: 1})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Price != 39.9 || entries[0].CapturedAt.Hour() != 10 {
		t.Fatalf("entries = %+v", entries)
	}

	if _, err := c.GetProduct(context.Background(), 99); err == nil {
		t.Fatal("expected not found error")
	}
}

func decodeBody(req *http.Request, v any) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}
