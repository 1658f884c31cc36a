package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// NotFound reports whether the backend answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// newAPIError extracts the message from an error body. The body's "error"
// field wins over "message"; a non-JSON body is used verbatim, and an empty
// one falls back to the HTTP status.
func newAPIError(status int, body []byte) *APIError {
	var errorResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		switch {
		case errorResp.Error != "":
			return &APIError{StatusCode: status, Message: errorResp.Error}
		case errorResp.Message != "":
			return &APIError{StatusCode: status, Message: errorResp.Message}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "{") {
		msg = fmt.Sprintf("HTTP error %d", status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// DecodeError is returned when a 2xx body does not match the expected schema.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
