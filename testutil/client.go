package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/kbukum/fuisce/app"
)

// HTTPClient sends requests straight to a handler, without a listener.
type HTTPClient struct {
	handler http.Handler
	header  http.Header
}

// NewClient returns a client for handler.
func NewClient(handler http.Handler) *HTTPClient {
	return &HTTPClient{handler: handler, header: make(http.Header)}
}

// Client returns a client for the complete handler of a.
func Client(a *app.App) *HTTPClient {
	return NewClient(a.Handler())
}

// SetHeader sets a header sent with every request.
func (c *HTTPClient) SetHeader(key, value string) *HTTPClient {
	c.header.Set(key, value)
	return c
}

// Do serves req and returns the recorded response.
func (c *HTTPClient) Do(req *http.Request) *httptest.ResponseRecorder {
	for k, vs := range c.header {
		if req.Header.Get(k) == "" {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return rr
}

// Get sends a GET request.
func (c *HTTPClient) Get(path string) *httptest.ResponseRecorder {
	return c.Do(httptest.NewRequest(http.MethodGet, path, http.NoBody))
}

// Post sends a POST request with the given content type.
func (c *HTTPClient) Post(path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	if body == nil {
		body = http.NoBody
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// PostJSON sends v encoded as JSON. It panics if v cannot be encoded.
func (c *HTTPClient) PostJSON(path string, v interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(v)
	if err != nil {
		panic("testutil: encode request body: " + err.Error())
	}
	return c.Post(path, "application/json", bytes.NewReader(data))
}

// Delete sends a DELETE request.
func (c *HTTPClient) Delete(path string) *httptest.ResponseRecorder {
	return c.Do(httptest.NewRequest(http.MethodDelete, path, http.NoBody))
}
